package lock

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/digitorus/pdf"
)

// rewriter serializes every live object of the source document into a new
// encrypted file. Object numbers are preserved so references survive the
// rewrite unchanged.
type rewriter struct {
	rdr      *pdf.Reader
	input    []byte
	key      []byte
	payloads map[uint32][]byte

	out     bytes.Buffer
	offsets map[uint32]int64
	maxID   uint32
}

var objHeaderPattern = regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]+(\d+)[ \t]+obj\b`)

// newRewriter indexes the raw stream payloads of the input. Stream content
// is carried over still encoded; encryption wraps the encoded bytes, so the
// original filter chain stays untouched.
func newRewriter(rdr *pdf.Reader, input []byte, key []byte) *rewriter {
	r := &rewriter{
		rdr:      rdr,
		input:    input,
		key:      key,
		payloads: make(map[uint32][]byte),
		offsets:  make(map[uint32]int64),
		maxID:    uint32(rdr.XrefInformation.ItemCount) - 1,
	}
	r.indexPayloads()
	return r
}

// indexPayloads maps object numbers to their raw stream bytes. Later
// occurrences win: incremental updates append replacement objects after the
// originals.
func (r *rewriter) indexPayloads() {
	matches := objHeaderPattern.FindAllSubmatchIndex(r.input, -1)
	for i, m := range matches {
		var id uint32
		fmt.Sscanf(string(r.input[m[2]:m[3]]), "%d", &id)

		end := len(r.input)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		span := r.input[m[1]:end]

		payload := extractStreamPayload(span)
		if payload != nil {
			r.payloads[id] = payload
		}
	}
}

// extractStreamPayload finds the stream keyword that closes the object's
// dictionary and returns the bytes up to the matching endstream.
func extractStreamPayload(span []byte) []byte {
	search := span
	base := 0
	for {
		idx := bytes.Index(search, []byte("stream"))
		if idx < 0 {
			return nil
		}
		// The stream keyword directly follows the dictionary end.
		before := bytes.TrimRight(search[:idx], " \t\r\n")
		if !bytes.HasSuffix(before, []byte(">>")) {
			search = search[idx+6:]
			base += idx + 6
			continue
		}

		start := base + idx + len("stream")
		if start < len(span) && span[start] == '\r' {
			start++
		}
		if start < len(span) && span[start] == '\n' {
			start++
		}

		endIdx := bytes.LastIndex(span, []byte("endstream"))
		if endIdx < 0 || endIdx < start {
			return nil
		}
		payload := span[start:endIdx]
		// Writers terminate the payload with an EOL before endstream.
		payload = bytes.TrimSuffix(payload, []byte("\n"))
		payload = bytes.TrimSuffix(payload, []byte("\r"))
		return payload
	}
}

// run writes the complete encrypted document body and returns object
// offsets for the cross-reference table.
func (r *rewriter) run() error {
	r.out.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	for id := uint32(1); id <= r.maxID; id++ {
		v, err := r.rdr.GetObject(id)
		if err != nil || v.IsNull() {
			continue
		}
		if v.Kind() == pdf.Stream {
			switch v.Key("Type").Name() {
			// The new file carries a fresh classic xref; stale xref and
			// object streams would only shadow it.
			case "XRef", "ObjStm":
				continue
			}
		}

		body, err := r.objectBody(v, id)
		if err != nil {
			return fmt.Errorf("object %d: %w", id, err)
		}

		r.offsets[id] = int64(r.out.Len())
		fmt.Fprintf(&r.out, "%d 0 obj\n", id)
		r.out.Write(body)
		r.out.WriteString("\nendobj\n")
	}

	return nil
}

func (r *rewriter) objectBody(v pdf.Value, id uint32) ([]byte, error) {
	if v.Kind() != pdf.Stream {
		s, err := r.serialize(v, id, false)
		return []byte(s), err
	}

	payload, ok := r.payloads[id]
	if !ok {
		return nil, fmt.Errorf("stream payload not found")
	}
	encrypted, err := encryptObjectData(r.key, payload)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString("<<")
	for _, key := range v.Keys() {
		if key == "Length" {
			continue
		}
		s, err := r.serialize(v.Key(key), id, false)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, " /%s %s", key, s)
	}
	fmt.Fprintf(&buf, " /Length %d >>\nstream\n", len(encrypted))
	buf.Write(encrypted)
	buf.WriteString("\nendstream")
	return buf.Bytes(), nil
}

// serialize renders a value with strings encrypted. Signature dictionary
// /Contents entries stay in the clear so their hex reservation keeps
// matching the signed ByteRange. Direct values carry the ptr of the object
// they live in, so a ptr matching id means inline content, not a reference.
func (r *rewriter) serialize(v pdf.Value, id uint32, exempt bool) (string, error) {
	if ptr := v.GetPtr(); ptr.GetID() > 0 && ptr.GetID() != id {
		return fmt.Sprintf("%d %d R", ptr.GetID(), ptr.GetGen()), nil
	}

	switch v.Kind() {
	case pdf.String:
		raw := []byte(v.RawString())
		if exempt {
			return "<" + hex.EncodeToString(raw) + ">", nil
		}
		encrypted, err := encryptObjectData(r.key, raw)
		if err != nil {
			return "", err
		}
		return "<" + hex.EncodeToString(encrypted) + ">", nil

	case pdf.Name:
		return "/" + v.Name(), nil

	case pdf.Array:
		var b strings.Builder
		b.WriteString("[")
		for i := 0; i < v.Len(); i++ {
			s, err := r.serialize(v.Index(i), id, exempt)
			if err != nil {
				return "", err
			}
			b.WriteString(" " + s)
		}
		b.WriteString(" ]")
		return b.String(), nil

	case pdf.Dict:
		isSig := v.Key("Type").Name() == "Sig"
		var b strings.Builder
		b.WriteString("<<")
		for _, key := range v.Keys() {
			s, err := r.serialize(v.Key(key), id, exempt || (isSig && key == "Contents"))
			if err != nil {
				return "", err
			}
			b.WriteString(" /" + key + " " + s)
		}
		b.WriteString(" >>")
		return b.String(), nil

	default:
		return v.String(), nil
	}
}

// finish appends the encryption dictionary, cross-reference table and
// trailer.
func (r *rewriter) finish(material *encryptionMaterial, fileID []byte) ([]byte, error) {
	encryptID := r.maxID + 1
	r.offsets[encryptID] = int64(r.out.Len())
	fmt.Fprintf(&r.out, "%d 0 obj\n", encryptID)
	r.out.WriteString("<< /Filter /Standard /V 5 /R 6 /Length 256")
	r.out.WriteString(" /CF << /StdCF << /Type /CryptFilter /CFM /AESV3 /Length 32 /AuthEvent /DocOpen >> >>")
	r.out.WriteString(" /StmF /StdCF /StrF /StdCF")
	fmt.Fprintf(&r.out, " /O <%s>", hex.EncodeToString(material.O))
	fmt.Fprintf(&r.out, " /U <%s>", hex.EncodeToString(material.U))
	fmt.Fprintf(&r.out, " /OE <%s>", hex.EncodeToString(material.OE))
	fmt.Fprintf(&r.out, " /UE <%s>", hex.EncodeToString(material.UE))
	fmt.Fprintf(&r.out, " /Perms <%s>", hex.EncodeToString(material.Perms))
	fmt.Fprintf(&r.out, " /P %d", material.P)
	r.out.WriteString(" /EncryptMetadata true >>\nendobj\n")

	xrefStart := int64(r.out.Len())
	size := encryptID + 1

	fmt.Fprintf(&r.out, "xref\n0 %d\n", size)
	r.out.WriteString("0000000000 65535 f\r\n")
	for id := uint32(1); id < size; id++ {
		if offset, ok := r.offsets[id]; ok {
			fmt.Fprintf(&r.out, "%010d 00000 n\r\n", offset)
		} else {
			r.out.WriteString("0000000000 65535 f\r\n")
		}
	}

	trailer := r.rdr.Trailer()
	r.out.WriteString("trailer\n<<\n")
	fmt.Fprintf(&r.out, "  /Size %d\n", size)
	if ptr := trailer.Key("Root").GetPtr(); ptr.GetID() > 0 {
		fmt.Fprintf(&r.out, "  /Root %d %d R\n", ptr.GetID(), ptr.GetGen())
	}
	if ptr := trailer.Key("Info").GetPtr(); ptr.GetID() > 0 {
		fmt.Fprintf(&r.out, "  /Info %d %d R\n", ptr.GetID(), ptr.GetGen())
	}
	fmt.Fprintf(&r.out, "  /Encrypt %d 0 R\n", encryptID)
	id := hex.EncodeToString(fileID)
	fmt.Fprintf(&r.out, "  /ID [<%s><%s>]\n", id, id)
	r.out.WriteString(">>\n")
	fmt.Fprintf(&r.out, "startxref\n%d\n%%%%EOF\n", xrefStart)

	return r.out.Bytes(), nil
}
