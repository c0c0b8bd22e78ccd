package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSizeSummary(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want uint64
	}{
		{
			name: "berkeley output",
			out:  "   text\t   data\t    bss\t    dec\t    hex\tfilename\n   1234\t    567\t     89\t   1890\t    762\tabc.elf\n",
			want: 1234,
		},
		{
			name: "single spaced",
			out:  "text data bss dec hex filename\n1234 567 89 1890 abc filename",
			want: 1234,
		},
		{name: "header only", out: "text data bss dec hex filename\n", want: 0},
		{name: "empty", out: "", want: 0},
		{name: "garbage", out: "text\nnot-a-number 1 2", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSizeSummary(tt.out))
		})
	}
}

func TestFilterSectionRows(t *testing.T) {
	out := `a.elf  :
section            size        addr
.isr_vector         392   134217728
.text             12000   134218120
.rodata             800   134230120
.ARM.attributes      46           0
.data               104   536870912
.bss                512   536871016
.comment             73           0
Total             13927
`
	rows := FilterSectionRows(out)
	assert.Len(t, rows, 6)
	assert.Contains(t, rows[0], "section")
	assert.Contains(t, rows[1], ".text")
	assert.Contains(t, rows[5], "Total")
}

func TestDropBSS(t *testing.T) {
	lines := []string{
		"00000100 00000400 T parse_config",
		"00000200 00000300 B big_buffer",
		"00000300 00000200 b static_buf",
		"00000400 00000100 t helper",
	}

	assert.Equal(t, []string{"00000100 00000400 T parse_config", "00000400 00000100 t helper"}, DropBSS(lines))
}

func TestParseSymbols(t *testing.T) {
	out := "0134218120 0000000400 T parse_config(char const*)\n" +
		"0134218520 0000000120 t helper\n" +
		"         U memcpy\n"

	syms := ParseSymbols(out)
	assert.Equal(t, []Symbol{
		{Size: 400, Type: "T", Name: "parse_config(char const*)"},
		{Size: 120, Type: "t", Name: "helper"},
	}, syms)
}

func TestFilterLinkerWarnings(t *testing.T) {
	assert.Empty(t, FilterLinkerWarnings(""))
	assert.Empty(t, FilterLinkerWarnings("warning: _write is not implemented and will always fail\n\n"))
	assert.Equal(t, []string{"real one"}, FilterLinkerWarnings("real one\r\n/opt/libc_nano.a(x.o): note\n"))
}

func TestMatchExpectedSymbols(t *testing.T) {
	lines := []string{
		"08000100 T main",
		"08000200 T parse_config(EmbeddedConfig&)",
		"08000300 T JsonFusion::Serialize()",
		"08000400 T unrelated",
	}

	matched := MatchExpectedSymbols(lines, DefaultExpectedSymbols)
	assert.Equal(t, []string{"08000200 T parse_config(EmbeddedConfig&)", "08000300 T JsonFusion::Serialize()"}, matched)

	assert.Empty(t, MatchExpectedSymbols([]string{"08000100 T main"}, DefaultExpectedSymbols))
	assert.Empty(t, MatchExpectedSymbols(lines, []string{""}))
}
