package codec

import (
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/wrapperspb"
)

type layout struct {
	Name   string    `json:"name" msgpack:"name" cbor:"name"`
	Fields []string  `json:"fields" msgpack:"fields" cbor:"fields"`
	At     time.Time `json:"at" msgpack:"at" cbor:"at"`
}

func sample() layout {
	return layout{Name: "Point", Fields: []string{"x", "y"}, At: time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)}
}

func checkLayout(t *testing.T, name string, c Codec[layout]) {
	t.Helper()
	in := sample()
	b, err := c.Encode(in)
	if err != nil {
		t.Fatalf("%s encode: %v", name, err)
	}
	out, err := c.Decode(b)
	if err != nil {
		t.Fatalf("%s decode: %v", name, err)
	}
	if out.Name != in.Name || len(out.Fields) != 2 || out.Fields[1] != "y" || !out.At.Equal(in.At) {
		t.Fatalf("%s: got %+v want %+v", name, out, in)
	}
}

func TestStructCodecs(t *testing.T) {
	checkLayout(t, "json", JSON[layout]{})
	checkLayout(t, "msgpack", Msgpack[layout]{})
	checkLayout(t, "cbor", MustCBOR[layout](false))
	checkLayout(t, "cbor-det", MustCBOR[layout](true))
}

func TestCBORDeterministicStable(t *testing.T) {
	c := MustCBOR[map[string]int](true)
	a, _ := c.Encode(map[string]int{"b": 2, "a": 1, "c": 3})
	b, _ := c.Encode(map[string]int{"c": 3, "a": 1, "b": 2})
	if string(a) != string(b) {
		t.Fatalf("deterministic encoding differs: %x vs %x", a, b)
	}
}

func TestProtobuf(t *testing.T) {
	c := NewProtobuf(func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} })
	b, err := c.Encode(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	m, err := c.Decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if m.GetValue() != "hello" {
		t.Fatalf("got %q", m.GetValue())
	}
}

func TestLimit(t *testing.T) {
	c := Limit[string]{Inner: String{}, Max: 4}
	if _, err := c.Encode("12345"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("encode over limit: %v", err)
	}
	if _, err := c.Decode([]byte("12345")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("decode over limit: %v", err)
	}
	if v, err := c.Decode([]byte("1234")); err != nil || v != "1234" {
		t.Fatalf("decode at limit: %q %v", v, err)
	}

	off := Limit[string]{Inner: String{}}
	if _, err := off.Decode(make([]byte, 1<<16)); err != nil {
		t.Fatalf("Max=0 disables limit, got %v", err)
	}
}

func TestBytesDecodeCopies(t *testing.T) {
	in := []byte("abc")
	out, _ := Bytes{}.Decode(in)
	in[0] = 'X'
	if out[0] != 'a' {
		t.Fatalf("Bytes.Decode must not alias its input")
	}
}
