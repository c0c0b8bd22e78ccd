package elfinspect_test

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"os"
)

const (
	textSize = 16
	dataSize = 8
)

// writeFixture writes a little-endian ELF32 ARM image with .text, .data
// and a symbol table holding one global function per name.
func writeFixture(path string, symbols []string) error {
	strtab := []byte{0}
	syms := []elf.Sym32{{}}
	for i, name := range symbols {
		syms = append(syms, elf.Sym32{
			Name:  uint32(len(strtab)),
			Value: 0x08000000 + uint32(i)*4,
			Size:  4,
			Info:  elf.ST_INFO(elf.STB_GLOBAL, elf.STT_FUNC),
			Shndx: 1,
		})
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
	}

	shstrtab := []byte("\x00.text\x00.data\x00.symtab\x00.strtab\x00.shstrtab\x00")
	nameOff := func(name string) uint32 {
		return uint32(bytes.Index(shstrtab, []byte("\x00"+name+"\x00")) + 1)
	}

	const (
		ehsize    = 52
		shentsize = 40
		symsize   = 16
	)

	textOff := uint32(ehsize)
	dataOff := textOff + textSize
	symOff := dataOff + dataSize
	strOff := symOff + uint32(len(syms))*symsize
	shstrOff := strOff + uint32(len(strtab))
	shOff := (shstrOff + uint32(len(shstrtab)) + 3) &^ 3

	sections := []elf.Section32{
		{},
		{
			Name: nameOff(".text"), Type: uint32(elf.SHT_PROGBITS),
			Flags: uint32(elf.SHF_ALLOC | elf.SHF_EXECINSTR), Addr: 0x08000000,
			Off: textOff, Size: textSize, Addralign: 4,
		},
		{
			Name: nameOff(".data"), Type: uint32(elf.SHT_PROGBITS),
			Flags: uint32(elf.SHF_ALLOC | elf.SHF_WRITE), Addr: 0x20000000,
			Off: dataOff, Size: dataSize, Addralign: 4,
		},
		{
			Name: nameOff(".symtab"), Type: uint32(elf.SHT_SYMTAB),
			Off: symOff, Size: uint32(len(syms)) * symsize,
			Link: 4, Info: 1, Addralign: 4, Entsize: symsize,
		},
		{
			Name: nameOff(".strtab"), Type: uint32(elf.SHT_STRTAB),
			Off: strOff, Size: uint32(len(strtab)), Addralign: 1,
		},
		{
			Name: nameOff(".shstrtab"), Type: uint32(elf.SHT_STRTAB),
			Off: shstrOff, Size: uint32(len(shstrtab)), Addralign: 1,
		},
	}

	hdr := elf.Header32{
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(elf.EM_ARM),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     0x08000000,
		Shoff:     shOff,
		Ehsize:    ehsize,
		Shentsize: shentsize,
		Shnum:     uint16(len(sections)),
		Shstrndx:  5,
	}
	copy(hdr.Ident[:], elf.ELFMAG)
	hdr.Ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	hdr.Ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	hdr.Ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	buf := &bytes.Buffer{}
	parts := []any{hdr, make([]byte, textSize), make([]byte, dataSize), syms, strtab, shstrtab}
	for _, p := range parts {
		if err := binary.Write(buf, binary.LittleEndian, p); err != nil {
			return err
		}
	}

	buf.Write(make([]byte, int(shOff)-buf.Len()))
	if err := binary.Write(buf, binary.LittleEndian, sections); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0o644)
}
