package extension

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	intros     []Descriptor
	resets     []uint32
	recUpdates [][2]any
	atomicIncs [][2]any
	hdrUpdates [][2]any
}

func (h *recordingHandler) Intro(_ context.Context, desc Descriptor) error {
	h.intros = append(h.intros, desc)
	return nil
}

func (h *recordingHandler) Reset(_ context.Context, newResetID uint32) error {
	h.resets = append(h.resets, newResetID)
	return nil
}

func (h *recordingHandler) RecUpdate(_ context.Context, recordOffset uint32, payload []byte) error {
	h.recUpdates = append(h.recUpdates, [2]any{recordOffset, append([]byte(nil), payload...)})
	return nil
}

func (h *recordingHandler) AtomicInc(_ context.Context, recordOffset uint32, delta int32) error {
	h.atomicIncs = append(h.atomicIncs, [2]any{recordOffset, delta})
	return nil
}

func (h *recordingHandler) HdrUpdate(_ context.Context, offset uint32, data []byte) error {
	h.hdrUpdates = append(h.hdrUpdates, [2]any{offset, append([]byte(nil), data...)})
	return nil
}

func TestRegistry_LookupUnknownReturnsSentinel(t *testing.T) {
	r := NewRegistry()
	_, err := r.Lookup("vsize")
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestRegistry_DispatchForwardsToRegisteredHandler(t *testing.T) {
	r := NewRegistry()
	h := &recordingHandler{}
	r.Register("vsize", h)

	desc := Descriptor{ID: uuid.New(), Name: "vsize", RecordSize: 8}
	err := r.Dispatch(context.Background(), "vsize", func(ctx context.Context, handler Handler) error {
		return handler.Intro(ctx, desc)
	})
	require.NoError(t, err)
	require.Len(t, h.intros, 1)
	assert.Equal(t, "vsize", h.intros[0].Name)
}

func TestRegistry_DispatchUnknownExtensionPropagatesSentinel(t *testing.T) {
	r := NewRegistry()
	err := r.Dispatch(context.Background(), "unknown", func(ctx context.Context, handler Handler) error {
		t.Fatal("must not be called for an unregistered extension")
		return nil
	})
	assert.ErrorIs(t, err, ErrUnknownExtension)
}

func TestRegistry_RegisterOverwritesPriorBinding(t *testing.T) {
	r := NewRegistry()
	first := &recordingHandler{}
	second := &recordingHandler{}
	r.Register("vsize", first)
	r.Register("vsize", second)

	h, err := r.Lookup("vsize")
	require.NoError(t, err)
	assert.Same(t, Handler(second), h)
}

func TestAlign4(t *testing.T) {
	cases := map[uint32]uint32{0: 0, 1: 4, 3: 4, 4: 4, 5: 8, 9: 12}
	for in, want := range cases {
		assert.Equal(t, want, Align4(in))
	}
}

func TestRecStride(t *testing.T) {
	// header 4 bytes + record 8 bytes = 12, already aligned.
	assert.Equal(t, uint32(12), RecStride(4, 8))
	// header 4 bytes + record 5 bytes = 9, pads to 12.
	assert.Equal(t, uint32(12), RecStride(4, 5))
}
