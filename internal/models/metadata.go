package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Metadata is the typed view of a place's metadata bag. Recognized keys are
// decoded into fields; anything else lands in Extra. A nil slice or pointer
// means the key was absent; an empty slice means it was present but empty.
//
// Recognized keys:
//
//	websites, website        list of URLs (or a single URL)
//	has_website              explicit boolean
//	socials, social          list of social profile URLs
//	phones, phone            list of phone numbers
//	emails, email            list of email addresses
//	brand                    brand name or brand object
//	addresses, address       first address object, or freeform string
//	city, state, postcode    address parts at top level (AddressParts)
//	opening_hours,
//	opening_hours_text       OSM-style opening hours string
//	source                   provenance of the record ("osm", "overture", ...)
//	sources                  list of {dataset, record_id, update_time, confidence}
//	confidence               source-reported existence confidence
//	categories               {"primary": ...} category object
type Metadata struct {
	Websites        []string
	HasWebsite      *bool
	Socials         []string
	Phones          []string
	Emails          []string
	Brand           *string
	Address         *Address
	AddressParts    *Address
	OpeningHours    *string
	Source          string
	Sources         []SourceRef
	Confidence      *float64
	PrimaryCategory string
	Extra           map[string]Scalar
}

// Address holds the parts of a postal address the engine uses.
type Address struct {
	Freeform string `json:"freeform,omitempty"`
	Locality string `json:"locality,omitempty"`
	Region   string `json:"region,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

// SourceRef is one upstream record that contributed to the place.
type SourceRef struct {
	Dataset    string     `json:"dataset,omitempty"`
	RecordID   string     `json:"record_id,omitempty"`
	UpdateTime *time.Time `json:"update_time,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
}

// ScalarKind discriminates Scalar values.
type ScalarKind uint8

const (
	ScalarNull ScalarKind = iota
	ScalarString
	ScalarNumber
	ScalarBool
	// ScalarRaw holds a non-scalar JSON value verbatim in String.
	ScalarRaw
)

// Scalar is an unrecognized metadata value.
type Scalar struct {
	Kind   ScalarKind
	String string
	Number float64
	Bool   bool
}

// MarshalJSON writes the scalar back as the JSON value it was decoded from.
func (s Scalar) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case ScalarString:
		return json.Marshal(s.String)
	case ScalarNumber:
		return json.Marshal(s.Number)
	case ScalarBool:
		return json.Marshal(s.Bool)
	case ScalarRaw:
		return []byte(s.String), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON value.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	*s = scalarFromRaw(data)
	return nil
}

func scalarFromRaw(raw json.RawMessage) Scalar {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Scalar{Kind: ScalarNull}
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return Scalar{Kind: ScalarRaw, String: string(trimmed)}
	}
	switch t := v.(type) {
	case string:
		return Scalar{Kind: ScalarString, String: t}
	case float64:
		return Scalar{Kind: ScalarNumber, Number: t}
	case bool:
		return Scalar{Kind: ScalarBool, Bool: t}
	default:
		return Scalar{Kind: ScalarRaw, String: string(trimmed)}
	}
}

// UnmarshalJSON decodes a raw metadata bag leniently: where the upstream
// datasets disagree on shape (a string versus a list, a number versus a
// numeric string) both are accepted.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var bag map[string]json.RawMessage
	if err := json.Unmarshal(data, &bag); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	*m = Metadata{}

	// Sorted so that aliases merge in a stable order.
	keys := make([]string, 0, len(bag))
	for key := range bag {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := bag[key]
		switch key {
		case "websites", "website":
			m.Websites = mergeList(m.Websites, decodeStringList(raw))
		case "has_website":
			m.HasWebsite = decodeBool(raw)
		case "socials", "social":
			m.Socials = mergeList(m.Socials, decodeStringList(raw))
		case "phones", "phone":
			m.Phones = mergeList(m.Phones, decodeStringList(raw))
		case "emails", "email":
			m.Emails = mergeList(m.Emails, decodeStringList(raw))
		case "brand":
			m.Brand = decodeBrand(raw)
		case "addresses", "address":
			if addr := decodeAddress(raw); addr != nil {
				m.Address = mergeAddress(m.Address, addr)
			}
		case "city":
			m.AddressParts = mergeAddress(m.AddressParts, &Address{Locality: decodeString(raw)})
		case "state":
			m.AddressParts = mergeAddress(m.AddressParts, &Address{Region: decodeString(raw)})
		case "postcode":
			m.AddressParts = mergeAddress(m.AddressParts, &Address{Postcode: decodeString(raw)})
		case "opening_hours", "opening_hours_text":
			if !isNull(raw) {
				if s := decodeString(raw); m.OpeningHours == nil || s != "" {
					m.OpeningHours = &s
				}
			}
		case "source":
			m.Source = decodeString(raw)
		case "sources":
			m.Sources = decodeSources(raw)
		case "confidence":
			m.Confidence = decodeNumber(raw)
		case "categories":
			m.PrimaryCategory = decodePrimary(raw)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]Scalar)
			}
			m.Extra[key] = scalarFromRaw(raw)
		}
	}
	return nil
}

// MarshalJSON flattens the typed fields and Extra back into one bag. Only
// present fields are written so that absence survives a round trip.
func (m Metadata) MarshalJSON() ([]byte, error) {
	bag := make(map[string]any, len(m.Extra)+8)
	for k, v := range m.Extra {
		bag[k] = v
	}
	if m.Websites != nil {
		bag["websites"] = m.Websites
	}
	if m.HasWebsite != nil {
		bag["has_website"] = *m.HasWebsite
	}
	if m.Socials != nil {
		bag["socials"] = m.Socials
	}
	if m.Phones != nil {
		bag["phones"] = m.Phones
	}
	if m.Emails != nil {
		bag["emails"] = m.Emails
	}
	if m.Brand != nil {
		bag["brand"] = *m.Brand
	}
	if m.Address != nil {
		bag["address"] = m.Address
	}
	if m.AddressParts != nil {
		bag["city"] = m.AddressParts.Locality
		bag["state"] = m.AddressParts.Region
		bag["postcode"] = m.AddressParts.Postcode
	}
	if m.OpeningHours != nil {
		bag["opening_hours"] = *m.OpeningHours
	}
	if m.Source != "" {
		bag["source"] = m.Source
	}
	if m.Sources != nil {
		bag["sources"] = m.Sources
	}
	if m.Confidence != nil {
		bag["confidence"] = *m.Confidence
	}
	if m.PrimaryCategory != "" {
		bag["categories"] = map[string]string{"primary": m.PrimaryCategory}
	}
	return json.Marshal(bag)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

func decodeStringList(raw json.RawMessage) []string {
	if isNull(raw) {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if s := strings.TrimSpace(single); s != "" {
			return []string{s}
		}
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{string(bytes.TrimSpace(raw))}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if isNull(item) {
			continue
		}
		if s := decodeString(item); s != "" {
			out = append(out, s)
			continue
		}
		out = append(out, string(bytes.TrimSpace(item)))
	}
	return out
}

func mergeList(existing, more []string) []string {
	if existing == nil {
		return more
	}
	if more == nil {
		return existing
	}
	return append(existing, more...)
}

func decodeBool(raw json.RawMessage) *bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case float64:
		b = t != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}

func decodeNumber(raw json.RawMessage) *float64 {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		return &t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func decodeBrand(raw json.RawMessage) *string {
	if isNull(raw) {
		return nil
	}
	if s := decodeString(raw); s != "" {
		return &s
	}
	var obj struct {
		Names struct {
			Primary string `json:"primary"`
		} `json:"names"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Names.Primary != "" {
		return &obj.Names.Primary
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err == nil && len(generic) > 0 {
		s := string(bytes.TrimSpace(raw))
		return &s
	}
	empty := ""
	return &empty
}

func decodeAddress(raw json.RawMessage) *Address {
	if isNull(raw) {
		return nil
	}
	if s := decodeString(raw); s != "" {
		return &Address{Freeform: s}
	}
	var list []Address
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return &Address{}
		}
		return &list[0]
	}
	var single Address
	if err := json.Unmarshal(raw, &single); err == nil {
		return &single
	}
	return nil
}

func mergeAddress(base, more *Address) *Address {
	if base == nil {
		copied := *more
		return &copied
	}
	if base.Freeform == "" {
		base.Freeform = more.Freeform
	}
	if base.Locality == "" {
		base.Locality = more.Locality
	}
	if base.Region == "" {
		base.Region = more.Region
	}
	if base.Postcode == "" {
		base.Postcode = more.Postcode
	}
	if base.Country == "" {
		base.Country = more.Country
	}
	return base
}

// PostalAddress is the listed address completed with the top-level parts.
// Only the listed address counts as a street address on record.
func (m Metadata) PostalAddress() Address {
	var merged *Address
	if m.Address != nil {
		merged = mergeAddress(nil, m.Address)
	}
	if m.AddressParts != nil {
		if merged == nil {
			merged = mergeAddress(nil, m.AddressParts)
		} else {
			merged = mergeAddress(merged, m.AddressParts)
		}
	}
	if merged == nil {
		return Address{}
	}
	return *merged
}

// IsZero reports whether no address part is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

func decodeSources(raw json.RawMessage) []SourceRef {
	if isNull(raw) {
		return nil
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []SourceRef{}
	}
	out := make([]SourceRef, 0, len(items))
	for _, item := range items {
		ref := SourceRef{
			Dataset:    decodeString(item["dataset"]),
			RecordID:   decodeString(item["record_id"]),
			Confidence: decodeNumber(item["confidence"]),
		}
		if ts := decodeString(item["update_time"]); ts != "" {
			if parsed, ok := parseTimestamp(ts); ok {
				ref.UpdateTime = &parsed
			}
		}
		out = append(out, ref)
	}
	return out
}

func decodePrimary(raw json.RawMessage) string {
	if s := decodeString(raw); s != "" {
		return s
	}
	var obj struct {
		Primary string `json:"primary"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Primary)
	}
	return ""
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ExtraKeys returns the unrecognized keys in sorted order.
func (m Metadata) ExtraKeys() []string {
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
