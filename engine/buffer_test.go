package engine

import (
	"testing"
)

func TestBufferPool_DefaultSize(t *testing.T) {
	bp := NewBufferPool(0)

	buf := bp.Get()
	if buf == nil {
		t.Fatal("expected a valid buffer pointer, got nil")
	}
	if len(*buf) != DefaultBufferSize {
		t.Errorf("expected buffer size %d, got %d", DefaultBufferSize, len(*buf))
	}
	bp.Put(buf)
}

func TestBufferPool_CustomSize(t *testing.T) {
	bp := NewBufferPool(8192)

	buf1 := bp.Get()
	if len(*buf1) != 8192 {
		t.Errorf("expected buffer size 8192, got %d", len(*buf1))
	}

	(*buf1)[0] = 42
	bp.Put(buf1)

	buf2 := bp.Get()
	if len(*buf2) != 8192 {
		t.Errorf("expected reused buffer size 8192, got %d", len(*buf2))
	}
	bp.Put(buf2)
}
