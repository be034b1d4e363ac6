package codec

import (
	"bytes"
	"encoding/json"
	"encoding/xml"

	"todomanager/internal/core"
)

// Item renders one entity as a bare object (JSON) or a kind-named element
// (XML).
type Item struct {
	Entity core.Entity
}

// List renders entities of one kind wrapped in their collection name.
type List struct {
	Kind  core.Kind
	Items []core.Entity
}

// NewList wraps entities for rendering. A nil slice renders as empty.
func NewList(kind core.Kind, items []core.Entity) List {
	if items == nil {
		items = []core.Entity{}
	}
	return List{Kind: kind, Items: items}
}

type linkRef struct {
	ID string `json:"id" xml:"id"`
}

// MarshalJSON writes id, the kind's fields in declaration order, then any
// non-empty relationship lists.
func (it Item) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeEntityJSON(&buf, it.Entity); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeEntityJSON(buf *bytes.Buffer, e core.Entity) error {
	buf.WriteByte('{')
	if err := writeMember(buf, "id", e.ID, true); err != nil {
		return err
	}
	for _, f := range core.Fields(e.Kind) {
		if err := writeMember(buf, f.Name, e.Get(f.Name), false); err != nil {
			return err
		}
	}
	for _, rel := range core.RelationsFrom(e.Kind) {
		ids := e.Links[rel.Name]
		if len(ids) == 0 {
			continue
		}
		refs := make([]linkRef, len(ids))
		for i, id := range ids {
			refs[i] = linkRef{ID: id}
		}
		if err := writeMember(buf, rel.Name, refs, false); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeMember(buf *bytes.Buffer, key string, value any, first bool) error {
	if !first {
		buf.WriteByte(',')
	}
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

// MarshalJSON writes {"<collection>":[...]}.
func (l List) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	k, err := json.Marshal(l.Kind.Collection())
	if err != nil {
		return nil, err
	}
	buf.Write(k)
	buf.WriteString(":[")
	for i, e := range l.Items {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeEntityJSON(&buf, e); err != nil {
			return nil, err
		}
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalXML writes <kind><id>..</id><title>..</title>...</kind>. The start
// element supplied by the encoder is ignored.
func (it Item) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	if err := writeEntityXML(enc, it.Entity); err != nil {
		return err
	}
	return enc.Flush()
}

func writeEntityXML(enc *xml.Encoder, e core.Entity) error {
	root := xml.StartElement{Name: xml.Name{Local: string(e.Kind)}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	if err := enc.EncodeElement(e.ID, xml.StartElement{Name: xml.Name{Local: "id"}}); err != nil {
		return err
	}
	for _, f := range core.Fields(e.Kind) {
		if err := enc.EncodeElement(e.Get(f.Name), xml.StartElement{Name: xml.Name{Local: f.Name}}); err != nil {
			return err
		}
	}
	for _, rel := range core.RelationsFrom(e.Kind) {
		for _, id := range e.Links[rel.Name] {
			if err := enc.EncodeElement(linkRef{ID: id}, xml.StartElement{Name: xml.Name{Local: rel.Name}}); err != nil {
				return err
			}
		}
	}
	return enc.EncodeToken(root.End())
}

// MarshalXML writes <collection><kind>..</kind>...</collection>.
func (l List) MarshalXML(enc *xml.Encoder, _ xml.StartElement) error {
	root := xml.StartElement{Name: xml.Name{Local: l.Kind.Collection()}}
	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, e := range l.Items {
		if err := writeEntityXML(enc, e); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	return enc.Flush()
}
