package sendqueue

// Chunk splits payload into packets of at most size bytes. A non-positive
// size falls back to DefaultPacketSize.
func Chunk(payload []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultPacketSize
	}

	chunks := make([][]byte, 0, (len(payload)+size-1)/size)
	for len(payload) > 0 {
		n := min(size, len(payload))
		chunks = append(chunks, payload[:n:n])
		payload = payload[n:]
	}
	return chunks
}
