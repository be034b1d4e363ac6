// Package codec converts entities and error envelopes to and from their
// JSON and XML wire forms.
package codec

import (
	"mime"
	"sort"
	"strconv"
	"strings"
)

// Format is a wire representation.
type Format int

const (
	FormatJSON Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "xml"
	}
	return "json"
}

// ContentType returns the response media type for f.
func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml; charset=UTF-8"
	}
	return "application/json; charset=UTF-8"
}

type acceptRange struct {
	mediaType string
	q         float64
}

// Negotiate picks the response format from an Accept header. The
// highest-weighted range naming JSON or XML wins; ties keep header order.
// Wildcards, unknown types and an empty header select JSON.
func Negotiate(accept string) Format {
	var ranges []acceptRange
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		mt, params, err := mime.ParseMediaType(part)
		if err != nil {
			continue
		}
		q := 1.0
		if v, ok := params["q"]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, acceptRange{mediaType: mt, q: q})
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].q > ranges[j].q })

	for _, r := range ranges {
		switch {
		case isXML(r.mediaType):
			return FormatXML
		case r.mediaType == "application/json", strings.HasSuffix(r.mediaType, "+json"),
			r.mediaType == "*/*", r.mediaType == "application/*":
			return FormatJSON
		}
	}
	return FormatJSON
}

// RequestFormat picks the body format from a Content-Type header.
func RequestFormat(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(contentType)
	}
	if strings.Contains(mt, "xml") {
		return FormatXML
	}
	return FormatJSON
}

func isXML(mt string) bool {
	return mt == "application/xml" || mt == "text/xml" || strings.HasSuffix(mt, "+xml")
}
