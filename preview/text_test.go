package preview

import (
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

func TestDecodeText(t *testing.T) {
	gb, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("阅读指南"))
	if err != nil {
		t.Fatal(err)
	}
	utf16le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("笔记"))
	if err != nil {
		t.Fatal(err)
	}
	utf16be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("笔记"))
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		data   []byte
		expect string
	}{
		{data: []byte("plain text"), expect: "plain text"},
		{data: []byte("更新说明"), expect: "更新说明"},
		{data: append([]byte{0xEF, 0xBB, 0xBF}, []byte("带BOM")...), expect: "带BOM"},
		{data: utf16le, expect: "笔记"},
		{data: utf16be, expect: "笔记"},
		{data: gb, expect: "阅读指南"},
		{data: nil, expect: ""},
	}

	for i, tc := range testCases {
		result, err := DecodeText(tc.data)
		if err != nil {
			t.Fatalf("Decode index %d: %v", i, err)
		}
		if result != tc.expect {
			t.Fatalf("Unexpect result %q, expect %q, index %d", result, tc.expect, i)
		}
	}
}

func TestTruncateText(t *testing.T) {
	testCases := []struct {
		text  string
		limit int

		expect    string
		truncated bool
	}{
		{text: "hello", limit: 10, expect: "hello"},
		{text: "hello", limit: 0, expect: "hello"},
		{text: "hello", limit: 3, expect: "hel", truncated: true},
		{text: "哲学", limit: 3, expect: "哲", truncated: true},
		{text: "哲学", limit: 4, expect: "哲", truncated: true},
		{text: "哲学", limit: 2, expect: "", truncated: true},
	}

	for i, tc := range testCases {
		result, truncated := TruncateText(tc.text, tc.limit)
		if result != tc.expect || truncated != tc.truncated {
			t.Fatalf("Unexpect result %q, %v, expect %q, %v, index %d",
				result, truncated, tc.expect, tc.truncated, i)
		}
	}
}

func TestTrimCutRune(t *testing.T) {
	gb, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("阅读指南"))
	if err != nil {
		t.Fatal(err)
	}
	text := []byte("哲学")

	testCases := []struct {
		data   []byte
		expect []byte
	}{
		{data: text, expect: text},
		{data: text[:5], expect: text[:3]},
		{data: text[:4], expect: text[:3]},
		{data: text[:1], expect: []byte{}},
		{data: gb, expect: gb},
	}

	for i, tc := range testCases {
		result := trimCutRune(tc.data)
		if string(result) != string(tc.expect) {
			t.Fatalf("Unexpect result %q, expect %q, index %d", result, tc.expect, i)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	if StrategyFor(0) != StrategyExternalOnly {
		t.Fatal("Expect other kinds to be external only")
	}
}
