package learn

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// Learn files are a zstd stream holding a magic header followed by fixed-size
// records: fingerprint (8 bytes, big endian) then the encoded record.
var fileMagic = []byte("CHLN\x01")

const fileRecordSize = 8 + recordSize

// Export writes every record to w and returns how many were written.
func (s *Store) Export(w io.Writer) (int, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return 0, fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(fileMagic); err != nil {
		enc.Close()
		return 0, fmt.Errorf("write learn file header: %w", err)
	}

	n := 0
	buf := make([]byte, fileRecordSize)
	err = s.Each(func(r Record) error {
		binary.BigEndian.PutUint64(buf, r.Fingerprint)
		copy(buf[8:], encodeRecord(r))
		if _, err := enc.Write(buf); err != nil {
			return err
		}
		n++
		return nil
	})
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("export learn records: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("flush learn file: %w", err)
	}

	log.Info().Int("records", n).Msg("learn file exported")
	return n, nil
}

// Import reads a learn file written by Export and stores its records as one
// session. It returns how many records were imported.
func (s *Store) Import(r io.Reader, source string) (int, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	header := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(dec, header); err != nil {
		return 0, fmt.Errorf("read learn file header: %w", err)
	}
	if !bytes.Equal(header, fileMagic) {
		return 0, fmt.Errorf("not a learn file (header %q)", header)
	}

	var records []Record
	buf := make([]byte, fileRecordSize)
	for {
		_, err := io.ReadFull(dec, buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read learn record %d: %w", len(records), err)
		}
		rec, err := decodeRecord(binary.BigEndian.Uint64(buf), buf[8:])
		if err != nil {
			return 0, err
		}
		records = append(records, rec)
	}

	if _, err := s.Record(source, records); err != nil {
		return 0, err
	}
	log.Info().Int("records", len(records)).Str("source", source).Msg("learn file imported")
	return len(records), nil
}
