package hash

import (
	"testing"

	"pgregory.net/rapid"
)

func TestSumDeterministic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.SliceOf(rapid.Byte()).Draw(rt, "data")
		a := Sum(data)
		b := Sum(data)
		if a != b {
			rt.Fatalf("Sum not deterministic: %v != %v", a, b)
		}
	})
}

func TestHasherMatchesSum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		parts := rapid.SliceOf(rapid.SliceOf(rapid.Byte())).Draw(rt, "parts")
		var joined []byte
		hr := New()
		for _, p := range parts {
			hr.Update(p)
			joined = append(joined, p...)
		}
		if got, want := hr.Finalize(), Sum(joined); got != want {
			rt.Fatalf("Hasher.Finalize() = %v, want %v", got, want)
		}
	})
}

func TestHexRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(rt, "data")
		h := Sum(data)
		decoded, err := FromHex(h.String())
		if err != nil {
			rt.Fatalf("FromHex: %v", err)
		}
		if decoded != h {
			rt.Fatalf("round-trip mismatch")
		}
	})
}

func TestFromBytesInvalidLength(t *testing.T) {
	if _, err := FromBytes([]byte{1, 2, 3}); err != ErrInvalidLength {
		t.Fatalf("expected ErrInvalidLength, got %v", err)
	}
}

func TestLessIsStrictByteOrder(t *testing.T) {
	a := Hash{0x01}
	b := Hash{0x02}
	if !a.Less(b) {
		t.Fatalf("expected a < b")
	}
	if b.Less(a) == true && a.Less(b) == true {
		t.Fatalf("Less must be asymmetric")
	}
}
