package chunk

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

func mustPolicy(t *testing.T, size, overlap int) Policy {
	t.Helper()
	p, err := NewPolicy(size, overlap)
	if err != nil {
		t.Fatalf("NewPolicy(%d, %d): %v", size, overlap, err)
	}
	return p
}

func TestNewPolicy_Invalid(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{0, 0},
		{-1, 0},
		{10, -1},
		{10, 10},
		{10, 11},
	}
	for _, tc := range tests {
		_, err := NewPolicy(tc.size, tc.overlap)
		if !errors.Is(err, domain.ErrInvalidChunkConfig) {
			t.Errorf("NewPolicy(%d, %d): expected ErrInvalidChunkConfig, got %v", tc.size, tc.overlap, err)
		}
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Size() != 1000 || p.Overlap() != 200 || p.Stride() != 800 {
		t.Errorf("unexpected default policy: size=%d overlap=%d stride=%d", p.Size(), p.Overlap(), p.Stride())
	}
}

func TestSplit_Empty(t *testing.T) {
	if got := DefaultPolicy().Split(""); len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
}

func TestSplit_ShortText(t *testing.T) {
	got := DefaultPolicy().Split("hello")
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0].Text != "hello" || got[0].Offset != 0 || got[0].Index != 0 {
		t.Errorf("unexpected chunk: %+v", got[0])
	}
}

func TestSplit_Windows(t *testing.T) {
	// 2500 chars, 1000/200 -> starts 0, 800, 1600, 2400
	text := strings.Repeat("abcdefghij", 250)
	got := DefaultPolicy().Split(text)

	wantOffsets := []int{0, 800, 1600, 2400}
	wantLens := []int{1000, 1000, 900, 100}
	if len(got) != len(wantOffsets) {
		t.Fatalf("expected %d chunks, got %d", len(wantOffsets), len(got))
	}
	for i, c := range got {
		if c.Index != i {
			t.Errorf("chunk %d: Index = %d", i, c.Index)
		}
		if c.Offset != wantOffsets[i] {
			t.Errorf("chunk %d: Offset = %d, want %d", i, c.Offset, wantOffsets[i])
		}
		if len(c.Text) != wantLens[i] {
			t.Errorf("chunk %d: len = %d, want %d", i, len(c.Text), wantLens[i])
		}
		if c.Text != text[c.Offset:c.Offset+len(c.Text)] {
			t.Errorf("chunk %d: text does not match source window", i)
		}
	}
}

func TestSplit_ChunkLengthBound(t *testing.T) {
	p := mustPolicy(t, 7, 3)
	for n := 1; n < 60; n++ {
		text := strings.Repeat("x", n)
		for _, c := range p.Split(text) {
			if l := utf8.RuneCountInString(c.Text); l > p.Size() || l == 0 {
				t.Fatalf("n=%d: chunk %d has length %d", n, c.Index, l)
			}
		}
	}
}

func TestSplit_OverlapMatches(t *testing.T) {
	p := mustPolicy(t, 10, 4)
	text := "The quick brown fox jumps over the lazy dog near the riverbank."
	chunks := p.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i := 0; i+1 < len(chunks); i++ {
		cur := []rune(chunks[i].Text)
		next := []rune(chunks[i+1].Text)
		if len(next) < p.Overlap() {
			continue
		}
		tail := string(cur[len(cur)-p.Overlap():])
		head := string(next[:p.Overlap()])
		if tail != head {
			t.Errorf("chunks %d/%d: overlap %q != %q", i, i+1, tail, head)
		}
	}
}

func TestSplit_CoversText(t *testing.T) {
	p := mustPolicy(t, 9, 2)
	text := "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod."
	chunks := p.Split(text)

	// Reassemble by dropping each chunk's leading overlap.
	var b strings.Builder
	for i, c := range chunks {
		r := []rune(c.Text)
		if i > 0 {
			r = r[p.Overlap():]
		}
		b.WriteString(string(r))
	}
	if b.String() != text {
		t.Errorf("reassembled text mismatch:\n got %q\nwant %q", b.String(), text)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	p := mustPolicy(t, 13, 5)
	text := strings.Repeat("determinism ", 40)
	a := p.Split(text)
	b := p.Split(text)
	if len(a) != len(b) {
		t.Fatalf("length differs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("chunk %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestSplit_Runes(t *testing.T) {
	p := mustPolicy(t, 3, 1)
	got := p.Split("привет")
	want := []string{"при", "иве", "ет"}
	if len(got) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestTexts(t *testing.T) {
	got := Texts([]Chunk{{Text: "a"}, {Text: "b"}})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Texts() = %v", got)
	}
}
