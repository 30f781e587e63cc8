package extension

// Align4 rounds n up to the next multiple of 4, matching the log
// format's 4-byte sub-record padding rule.
func Align4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// RecStride computes the padded stride between consecutive
// EXT_REC_UPDATE or EXT_ATOMIC_INC entries: a fixed header plus the
// currently introduced extension's declared per-record payload size,
// rounded up to 4 bytes.
func RecStride(headerSize, recordSize uint32) uint32 {
	return Align4(headerSize + recordSize)
}
