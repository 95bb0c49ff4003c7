// Package incpdf appends incremental updates to existing PDF documents.
//
// An Updater copies the original file bytes verbatim and records new and
// replacement objects appended after them, then emits a cross-reference
// section (classic table or xref stream, matching the input) and a trailer.
// Earlier revisions of the file, including any signatures covering them,
// stay byte-identical.
package incpdf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/digitorus/pdf"
	"github.com/mattetti/filebuffer"
)

var errFinalized = errors.New("incpdf: updater already finalized")

type xrefEntry struct {
	ID     uint32
	Offset int64
}

// Updater builds one incremental update on top of an existing document.
type Updater struct {
	input []byte
	rdr   *pdf.Reader
	out   *filebuffer.Buffer

	lastID         uint32 // highest object number in the original file
	newEntries     []xrefEntry
	updatedEntries []xrefEntry
	rootID         uint32 // replacement catalog, 0 keeps the original
	finalized      bool
}

// Open parses input and prepares an update appended after it.
func Open(input []byte) (*Updater, error) {
	rdr, err := pdf.NewReader(bytes.NewReader(input), int64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	out := filebuffer.New(nil)
	if _, err := out.Write(input); err != nil {
		return nil, err
	}
	// Objects must start on their own line.
	if len(input) > 0 && input[len(input)-1] != '\n' {
		if _, err := out.Write([]byte("\n")); err != nil {
			return nil, err
		}
	}

	return &Updater{
		input:  input,
		rdr:    rdr,
		out:    out,
		lastID: uint32(rdr.XrefInformation.ItemCount) - 1,
	}, nil
}

// Reader exposes the parsed original document.
func (u *Updater) Reader() *pdf.Reader { return u.rdr }

// Input returns the original file bytes.
func (u *Updater) Input() []byte { return u.input }

// NextID returns the object number the next AddObject call will use.
func (u *Updater) NextID() uint32 {
	return u.lastID + uint32(len(u.newEntries)) + 1
}

// AddObject appends a new indirect object with the next free object number
// and returns that number. body is the object content without the
// "N 0 obj"/"endobj" envelope.
func (u *Updater) AddObject(body []byte) (uint32, error) {
	if u.finalized {
		return 0, errFinalized
	}
	id := u.NextID()
	offset, err := u.writeObject(id, body)
	if err != nil {
		return 0, err
	}
	u.newEntries = append(u.newEntries, xrefEntry{ID: id, Offset: offset})
	return id, nil
}

// UpdateObject appends a replacement for an object from the original file.
func (u *Updater) UpdateObject(id uint32, body []byte) error {
	if u.finalized {
		return errFinalized
	}
	offset, err := u.writeObject(id, body)
	if err != nil {
		return err
	}
	u.updatedEntries = append(u.updatedEntries, xrefEntry{ID: id, Offset: offset})
	return nil
}

// SetRoot points the new trailer at a replacement document catalog.
func (u *Updater) SetRoot(id uint32) { u.rootID = id }

func (u *Updater) writeObject(id uint32, body []byte) (int64, error) {
	offset := int64(u.out.Buff.Len())

	if _, err := fmt.Fprintf(u.out, "%d 0 obj\n", id); err != nil {
		return 0, err
	}
	if _, err := u.out.Write(bytes.TrimRight(body, "\n")); err != nil {
		return 0, err
	}
	if _, err := u.out.Write([]byte("\nendobj\n")); err != nil {
		return 0, err
	}

	return offset, nil
}

// Finalize writes the cross-reference section and trailer and returns the
// complete updated document. The Updater cannot be used afterwards.
func (u *Updater) Finalize() ([]byte, error) {
	if u.finalized {
		return nil, errFinalized
	}
	u.finalized = true

	var xrefStart int64
	var err error

	switch u.rdr.XrefInformation.Type {
	case "stream":
		xrefStart, err = u.writeXrefStream()
	default:
		xrefStart, err = u.writeXrefTable()
	}
	if err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(u.out, "startxref\n%s\n%%%%EOF\n", strconv.FormatInt(xrefStart, 10)); err != nil {
		return nil, err
	}

	return u.out.Buff.Bytes(), nil
}

func (u *Updater) rootRef() string {
	if u.rootID != 0 {
		return fmt.Sprintf("%d 0 R", u.rootID)
	}
	ptr := u.rdr.Trailer().Key("Root").GetPtr()
	return fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen())
}

func (u *Updater) size() int64 {
	return int64(u.lastID) + int64(len(u.newEntries)) + 2
}

// writeTrailerKeys emits the dictionary keys shared by table trailers and
// xref stream headers.
func (u *Updater) writeTrailerKeys(buf *bytes.Buffer, size int64) {
	fmt.Fprintf(buf, "  /Size %d\n", size)
	fmt.Fprintf(buf, "  /Root %s\n", u.rootRef())
	fmt.Fprintf(buf, "  /Prev %d\n", u.rdr.XrefInformation.StartPos)

	trailer := u.rdr.Trailer()
	if ptr := trailer.Key("Info").GetPtr(); ptr.GetID() > 0 {
		fmt.Fprintf(buf, "  /Info %d %d R\n", ptr.GetID(), ptr.GetGen())
	}
	if id := trailer.Key("ID"); !id.IsNull() && id.Len() >= 2 {
		id0 := hex.EncodeToString([]byte(id.Index(0).RawString()))
		id1 := hex.EncodeToString([]byte(id.Index(1).RawString()))
		fmt.Fprintf(buf, "  /ID [<%s><%s>]\n", id0, id1)
	}
}

func (u *Updater) writeXrefTable() (int64, error) {
	xrefStart := int64(u.out.Buff.Len())

	if _, err := u.out.Write([]byte("xref\n")); err != nil {
		return 0, err
	}

	// Replaced objects get one subsection each; they are sparse.
	for _, entry := range u.updatedEntries {
		if _, err := fmt.Fprintf(u.out, "%d 1\n%010d 00000 n\r\n", entry.ID, entry.Offset); err != nil {
			return 0, err
		}
	}

	// New objects are contiguous and share a subsection.
	if _, err := fmt.Fprintf(u.out, "%d %d\n", u.lastID+1, len(u.newEntries)); err != nil {
		return 0, err
	}
	for _, entry := range u.newEntries {
		if _, err := fmt.Fprintf(u.out, "%010d 00000 n\r\n", entry.Offset); err != nil {
			return 0, err
		}
	}

	var trailer bytes.Buffer
	trailer.WriteString("trailer\n<<\n")
	u.writeTrailerKeys(&trailer, u.size()-1)
	trailer.WriteString(">>\n")

	if _, err := u.out.Write(trailer.Bytes()); err != nil {
		return 0, err
	}

	return xrefStart, nil
}

func (u *Updater) writeXrefStream() (int64, error) {
	// The stream object indexes itself, so its number and offset are fixed
	// before its entries are encoded.
	streamID := u.NextID()
	offset := int64(u.out.Buff.Len())
	u.newEntries = append(u.newEntries, xrefEntry{ID: streamID, Offset: offset})

	var entries bytes.Buffer
	for _, entry := range u.updatedEntries {
		writeXrefStreamLine(&entries, 1, entry.Offset, 0)
	}
	for _, entry := range u.newEntries {
		writeXrefStreamLine(&entries, 1, entry.Offset, 0)
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(entries.Bytes()); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}

	var body bytes.Buffer
	body.WriteString("<< /Type /XRef\n")
	fmt.Fprintf(&body, "  /Length %d\n", compressed.Len())
	body.WriteString("  /Filter /FlateDecode\n")
	// 1-byte type, 4-byte offset, 1-byte generation.
	body.WriteString("  /W [ 1 4 1 ]\n")
	body.WriteString("  /Index [")
	for _, entry := range u.updatedEntries {
		fmt.Fprintf(&body, " %d 1", entry.ID)
	}
	fmt.Fprintf(&body, " %d %d ]\n", u.lastID+1, len(u.newEntries))
	u.writeTrailerKeys(&body, u.size()-1)
	body.WriteString(">>\nstream\n")
	body.Write(compressed.Bytes())
	body.WriteString("\nendstream")

	if _, err := u.writeObject(streamID, body.Bytes()); err != nil {
		return 0, err
	}

	return offset, nil
}

func writeXrefStreamLine(b *bytes.Buffer, entryType byte, offset int64, gen byte) {
	b.WriteByte(entryType)

	var off [4]byte
	binary.BigEndian.PutUint32(off[:], uint32(offset))
	b.Write(off[:])

	b.WriteByte(gen)
}
