package dbc

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

type testField struct {
	name   string
	length int
}

func buildDBF(t *testing.T, fields []testField, records []string, deleted []bool) []byte {
	t.Helper()

	headerSize := fieldDescStart + fieldDescSize*len(fields) + 1
	recordSize := 1
	for _, f := range fields {
		recordSize += f.length
	}

	var buf bytes.Buffer
	hdr := make([]byte, fieldDescStart)
	hdr[0] = 0x03
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(records)))
	binary.LittleEndian.PutUint16(hdr[8:10], uint16(headerSize))
	binary.LittleEndian.PutUint16(hdr[10:12], uint16(recordSize))
	buf.Write(hdr)

	for _, f := range fields {
		desc := make([]byte, fieldDescSize)
		copy(desc[:11], f.name)
		desc[11] = 'C'
		desc[16] = byte(f.length)
		buf.Write(desc)
	}
	buf.WriteByte(headerTerminator)

	for i, rec := range records {
		require.Equal(t, recordSize-1, len(rec), "bad test record width")
		flag := byte(recordActive)
		if deleted != nil && deleted[i] {
			flag = recordDeleted
		}
		buf.WriteByte(flag)
		buf.WriteString(rec)
	}
	buf.WriteByte(fileTerminator)
	return buf.Bytes()
}

func TestDecodeDBF(t *testing.T) {
	fields := []testField{{"UF_ZI", 2}, {"ANO_CMPT", 2}, {"VAL_TOT", 8}}
	raw := buildDBF(t,
		fields,
		[]string{
			"3324 1532.77",
			"3524    0.50",
		},
		nil,
	)

	ds, err := DecodeDBF(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, []string{"UF_ZI", "ANO_CMPT", "VAL_TOT"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	require.Equal(t, "33", ds.Value(0, "UF_ZI"))
	require.Equal(t, "1532.77", ds.Value(0, "VAL_TOT"))
	require.Equal(t, "0.50", ds.Value(1, "VAL_TOT"))
}

func TestDecodeDBFSkipsDeletedRecords(t *testing.T) {
	fields := []testField{{"UF_ZI", 2}}
	raw := buildDBF(t, fields, []string{"33", "35", "31"}, []bool{false, true, false})

	ds, err := DecodeDBF(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, []string{"33", "31"}, ds.DistinctValues("UF_ZI"))
}

func TestDecodeDBFBlankFieldBecomesEmptyString(t *testing.T) {
	fields := []testField{{"UF_ZI", 2}, {"MES_CMPT", 2}}
	raw := buildDBF(t, fields, []string{"33  "}, nil)

	ds, err := DecodeDBF(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, "", ds.Value(0, "MES_CMPT"))
}

func TestDecodeDBFRejectsGarbage(t *testing.T) {
	_, err := DecodeDBF(bytes.NewReader([]byte("not a dbf file at all")))
	require.Error(t, err)
}

func TestParseHeaderRejectsWidthMismatch(t *testing.T) {
	fields := []testField{{"UF_ZI", 2}}
	raw := buildDBF(t, fields, []string{"33"}, nil)
	// Corrupt the declared record size.
	binary.LittleEndian.PutUint16(raw[10:12], 99)

	_, err := DecodeDBF(bytes.NewReader(raw))
	require.Error(t, err)
	require.Contains(t, err.Error(), "record size")
}
