package sqlite

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"math"
	"testing"
)

func blob(t *testing.T, vec []float32) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSQLiteVecExtension(t *testing.T) {
	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var version string
	if err := db.QueryRow("SELECT vec_version()").Scan(&version); err != nil {
		t.Fatalf("Failed to query vec_version(): %v", err)
	}
	if version == "" {
		t.Error("Expected a version string, got empty")
	}
}

func TestCosineDistanceOnBlobColumn(t *testing.T) {
	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE passages (id INTEGER PRIMARY KEY, content TEXT, embedding BLOB)`); err != nil {
		t.Fatal(err)
	}

	rows := []struct {
		content string
		vec     []float32
	}{
		{"same direction", []float32{1, 0, 0}},
		{"orthogonal", []float32{0, 1, 0}},
	}
	for _, r := range rows {
		if _, err := db.Exec(`INSERT INTO passages (content, embedding) VALUES (?, ?)`, r.content, blob(t, r.vec)); err != nil {
			t.Fatal(err)
		}
	}

	var (
		content  string
		distance float64
	)
	err = db.QueryRow(`
		SELECT content, vec_distance_cosine(embedding, ?) AS distance
		FROM passages
		ORDER BY distance
		LIMIT 1`, blob(t, []float32{2, 0, 0})).Scan(&content, &distance)
	if err != nil {
		t.Fatalf("distance query failed: %v", err)
	}

	if content != "same direction" {
		t.Errorf("expected nearest passage 'same direction', got %q", content)
	}
	if math.Abs(distance) > 1e-6 {
		t.Errorf("expected zero distance, got %f", distance)
	}
}
