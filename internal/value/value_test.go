package value

import (
	"encoding/json"
	"testing"
)

func TestJSONRoundTrip(t *testing.T) {
	v := Map(map[string]Value{
		"title": String("hello"),
		"count": Number(3),
		"tags":  List(String("a"), String("b")),
		"meta":  Null(),
		"done":  Bool(true),
	})

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !Equal(v, decoded) {
		t.Fatalf("round trip mismatch: %+v != %+v", v, decoded)
	}
}

func TestWithFieldAndWithoutField(t *testing.T) {
	base := Map(map[string]Value{"a": Number(1)})
	withB := base.WithField("b", Number(2))

	if _, ok := withB.Field("a"); !ok {
		t.Fatal("expected field a to survive WithField")
	}
	if _, ok := withB.Field("b"); !ok {
		t.Fatal("expected field b to be present")
	}

	withoutA := withB.WithoutField("a")
	if _, ok := withoutA.Field("a"); ok {
		t.Fatal("expected field a to be removed")
	}
	if _, ok := withoutA.Field("b"); !ok {
		t.Fatal("expected field b to survive WithoutField")
	}
}

func TestFromNativeUnsupportedType(t *testing.T) {
	_, err := FromNative(make(chan int))
	if err == nil {
		t.Fatal("expected error for unsupported native type")
	}
}
