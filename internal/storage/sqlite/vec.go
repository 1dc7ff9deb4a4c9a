package sqlite

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var errEmptyVector = errors.New("empty embedding vector")

// serializeVector converts a float32 slice to the LittleEndian BLOB layout
// that sqlite-vec scalar functions read.
func serializeVector(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, errEmptyVector
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(vec)*4))
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, fmt.Errorf("failed to serialize vector: %w", err)
	}
	return buf.Bytes(), nil
}
