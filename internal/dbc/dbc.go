// Package dbc decodes DATASUS report files. The archive serves .dbc files:
// a plain xBase (DBF) header followed by a 4-byte CRC and a PKWare
// DCL-compressed record section. Decoded rows are all text; numeric report
// fields keep their archive formatting.
package dbc

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/JoshVarga/blast"
	"golang.org/x/text/encoding/charmap"

	"github.com/medsched/sihrunner/internal/dataset"
)

const (
	fieldDescSize    = 32
	fieldDescStart   = 32
	headerTerminator = 0x0D
	recordActive     = 0x20
	recordDeleted    = 0x2A
	fileTerminator   = 0x1A
)

type field struct {
	name   string
	length int
}

type header struct {
	recordCount int
	headerSize  int
	recordSize  int
	fields      []field
}

// DecodeDBC decodes a compressed .dbc report into a dataset.
func DecodeDBC(r io.Reader) (*dataset.Dataset, error) {
	pre := make([]byte, 10)
	if _, err := io.ReadFull(r, pre); err != nil {
		return nil, fmt.Errorf("read dbc pre-header: %w", err)
	}
	headerSize := int(binary.LittleEndian.Uint16(pre[8:10]))
	if headerSize < fieldDescStart {
		return nil, fmt.Errorf("implausible dbc header size %d", headerSize)
	}

	rest := make([]byte, headerSize-10)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("read dbc header: %w", err)
	}
	headerBytes := append(pre, rest...)

	// 4-byte CRC sits between the header and the compressed records.
	if _, err := io.CopyN(io.Discard, r, 4); err != nil {
		return nil, fmt.Errorf("skip dbc crc: %w", err)
	}

	records, err := blast.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open pkware stream: %w", err)
	}
	defer func() { _ = records.Close() }()

	hdr, err := parseHeader(headerBytes)
	if err != nil {
		return nil, err
	}
	return decodeRecords(hdr, records)
}

// DecodeDBF decodes an uncompressed xBase file. The archive does not serve
// these directly, but the record section of a .dbc is exactly this layout,
// and tests exercise the decoder through it.
func DecodeDBF(r io.Reader) (*dataset.Dataset, error) {
	headerBytes := make([]byte, 10)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("read dbf pre-header: %w", err)
	}
	headerSize := int(binary.LittleEndian.Uint16(headerBytes[8:10]))
	if headerSize < fieldDescStart {
		return nil, fmt.Errorf("implausible dbf header size %d", headerSize)
	}
	rest := make([]byte, headerSize-10)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("read dbf header: %w", err)
	}

	hdr, err := parseHeader(append(headerBytes, rest...))
	if err != nil {
		return nil, err
	}
	return decodeRecords(hdr, r)
}

func parseHeader(b []byte) (*header, error) {
	hdr := &header{
		recordCount: int(binary.LittleEndian.Uint32(b[4:8])),
		headerSize:  int(binary.LittleEndian.Uint16(b[8:10])),
		recordSize:  int(binary.LittleEndian.Uint16(b[10:12])),
	}

	for off := fieldDescStart; off+fieldDescSize <= len(b); off += fieldDescSize {
		if b[off] == headerTerminator {
			break
		}
		desc := b[off : off+fieldDescSize]
		name := string(bytes.TrimRight(desc[:11], "\x00"))
		if name == "" {
			return nil, fmt.Errorf("empty field name at offset %d", off)
		}
		hdr.fields = append(hdr.fields, field{
			name:   name,
			length: int(desc[16]),
		})
	}
	if len(hdr.fields) == 0 {
		return nil, fmt.Errorf("dbf header describes no fields")
	}

	// Record size is the deletion flag plus all field widths; a mismatch
	// means the descriptor table was misread.
	want := 1
	for _, f := range hdr.fields {
		want += f.length
	}
	if want != hdr.recordSize {
		return nil, fmt.Errorf("record size %d does not match field widths %d", hdr.recordSize, want)
	}
	return hdr, nil
}

func decodeRecords(hdr *header, r io.Reader) (*dataset.Dataset, error) {
	columns := make([]string, len(hdr.fields))
	for i, f := range hdr.fields {
		columns[i] = f.name
	}
	out := dataset.New(columns...)

	latin1 := charmap.ISO8859_1.NewDecoder()
	record := make([]byte, hdr.recordSize)

	for n := 0; hdr.recordCount == 0 || n < hdr.recordCount; n++ {
		if _, err := io.ReadFull(r, record[:1]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("read record flag: %w", err)
		}
		if record[0] == fileTerminator {
			break
		}
		if _, err := io.ReadFull(r, record[1:]); err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if record[0] == recordDeleted {
			continue
		}

		row := make(map[string]string, len(hdr.fields))
		off := 1
		for _, f := range hdr.fields {
			raw := bytes.TrimSpace(record[off : off+f.length])
			off += f.length
			if len(raw) == 0 {
				row[f.name] = ""
				continue
			}
			decoded, err := latin1.Bytes(raw)
			if err != nil {
				// Latin-1 decoding cannot actually fail; keep raw bytes
				// if it ever does.
				decoded = raw
			}
			row[f.name] = string(decoded)
		}
		out.Append(row)
	}
	return out, nil
}
