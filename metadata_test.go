package timage

import (
	"errors"
	"testing"
)

func TestMetadataInsertAndGet(t *testing.T) {
	m := NewMetadata()
	m.Insert("isis.foo.bar", 42, true)
	m.Insert("isis.foo.baz", "hello", true)

	got, err := MetadataGet[int](m, "isis.foo.bar")
	if err != nil || got != 42 {
		t.Errorf("Get = %v, %v", got, err)
	}
	s, err := MetadataGet[string](m, "isis.foo.baz")
	if err != nil || s != "hello" {
		t.Errorf("Get = %v, %v", s, err)
	}
	if _, err := m.Get("isis.missing"); !errors.Is(err, ErrBounds) {
		t.Errorf("missing key error = %v", err)
	}
	if _, err := MetadataGet[float64](m, "isis.foo.bar"); !errors.Is(err, ErrParsing) {
		t.Errorf("wrong type error = %v", err)
	}
}

func TestMetadataInsertNoOverwrite(t *testing.T) {
	m := NewMetadata()
	m.Insert("key", 1, true)
	m.Insert("key", 2, false)
	if got, _ := MetadataGet[int](m, "key"); got != 1 {
		t.Errorf("no-overwrite insert replaced value: %d", got)
	}
	m.Insert("key", 3, true)
	if got, _ := MetadataGet[int](m, "key"); got != 3 {
		t.Errorf("overwrite insert kept old value: %d", got)
	}
}

func TestMetadataMerge(t *testing.T) {
	a := NewMetadata()
	a.Insert("shared", "a", true)
	a.Insert("only.a", 1, true)
	b := NewMetadata()
	b.Insert("shared", "b", true)
	b.Insert("only.b", 2, true)

	a.Merge(b, false)
	if got, _ := MetadataGet[string](a, "shared"); got != "a" {
		t.Errorf("merge without overwrite replaced: %q", got)
	}
	if got, _ := MetadataGet[int](a, "only.b"); got != 2 {
		t.Errorf("merge missed new key: %d", got)
	}

	a.Merge(b, true)
	if got, _ := MetadataGet[string](a, "shared"); got != "b" {
		t.Errorf("merge with overwrite kept old: %q", got)
	}
}

func TestMemoryImagePayloadPropagation(t *testing.T) {
	src := NewMemoryImage[uint8](2, 2, 1)
	src.Metadata().Insert("camera.focal", 4.5, true)

	dst := NewMemoryImage[uint8](2, 2, 1)
	dst.CopyPayloadFrom(src)
	got, err := MetadataGet[float64](dst.Metadata(), "camera.focal")
	if err != nil || got != 4.5 {
		t.Errorf("payload = %v, %v", got, err)
	}
}
