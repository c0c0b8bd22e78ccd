package elfinspect_test

import (
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Norgate-AV/footprint/internal/elfinspect"
)

var _ = Describe("Inspect", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elfinspect-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Context("with a linked image", func() {
		var exe string

		BeforeEach(func() {
			exe = filepath.Join(tempDir, "arm_core_size-opt.elf")
			Expect(writeFixture(exe, []string{"parse_config", "ParseValue", "main"})).To(Succeed())
		})

		It("should list allocated sections including .text", func() {
			r, err := elfinspect.Inspect(exe, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Class).To(Equal("ELFCLASS32"))
			Expect(r.Machine).To(Equal("EM_ARM"))
			Expect(r.TextSize).To(Equal(uint64(textSize)))

			Expect(r.Sections).To(HaveLen(2))
			Expect(r.Sections[0]).To(Equal(elfinspect.Section{Name: ".text", Addr: 0x08000000, Size: textSize, Exec: true}))
			Expect(r.Sections[1]).To(Equal(elfinspect.Section{Name: ".data", Addr: 0x20000000, Size: dataSize, Write: true}))
		})

		It("should match expected symbols case-insensitively", func() {
			r, err := elfinspect.Inspect(exe, []string{"PARSE"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Symbols).To(Equal(3))
			Expect(r.Matches).To(Equal(2))
			Expect(r.Matched).To(ConsistOf("parse_config", "ParseValue"))
		})

		It("should count a symbol once when several patterns match", func() {
			r, err := elfinspect.Inspect(exe, []string{"parse", "config", ""})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Matches).To(Equal(2))
		})

		It("should find nothing for an absent pattern", func() {
			r, err := elfinspect.Inspect(exe, []string{"no-such-symbol-pattern-xyz"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Matches).To(BeZero())
			Expect(r.Matched).To(BeEmpty())
		})

		It("should render report lines through the Inspector adapter", func() {
			lines, err := elfinspect.Inspector{Patterns: []string{"main"}}.Inspect(exe)
			Expect(err).NotTo(HaveOccurred())
			Expect(lines[0]).To(Equal("ELFCLASS32 EM_ARM, 3 symbols"))
			Expect(lines).To(ContainElement(ContainSubstring(".text")))
			Expect(lines).To(ContainElement("expected-symbol matches: 1"))
			Expect(lines[len(lines)-1]).To(Equal("  main"))
		})
	})

	Context("with many matching symbols", func() {
		It("should keep only the first ten names", func() {
			var names []string
			for i := 0; i < 12; i++ {
				names = append(names, fmt.Sprintf("parse_%02d", i))
			}

			exe := filepath.Join(tempDir, "many.elf")
			Expect(writeFixture(exe, names)).To(Succeed())

			r, err := elfinspect.Inspect(exe, []string{"parse"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Matches).To(Equal(12))
			Expect(r.Matched).To(HaveLen(10))
			Expect(r.Matched[0]).To(Equal("parse_00"))
		})
	})

	Context("with an empty symbol table", func() {
		It("should report zero symbols", func() {
			exe := filepath.Join(tempDir, "empty.elf")
			Expect(writeFixture(exe, nil)).To(Succeed())

			r, err := elfinspect.Inspect(exe, []string{"parse"})
			Expect(err).NotTo(HaveOccurred())
			Expect(r.Symbols).To(BeZero())
			Expect(r.Matches).To(BeZero())
		})
	})

	Context("with a file that is not ELF", func() {
		It("should return an error", func() {
			path := filepath.Join(tempDir, "not.elf")
			Expect(os.WriteFile(path, []byte("definitely not an elf"), 0o644)).To(Succeed())

			_, err := elfinspect.Inspect(path, nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("failed to open ELF file"))
		})
	})

	Context("with a missing file", func() {
		It("should return an error", func() {
			_, err := elfinspect.Inspect(filepath.Join(tempDir, "missing.elf"), nil)
			Expect(err).To(HaveOccurred())
		})
	})
})
