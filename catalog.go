package sigma

import (
	"sort"
	"sync"
)

// FieldDescriptor is the catalog entry for an ISO field.
type FieldDescriptor struct {
	ID         int
	Name       string
	Kind       FieldKind
	Encoding   Encoding
	Length     LengthMode
	MaxLength  int // digits for numeric BCD fields, bytes otherwise
	Mandatory  bool
	Structured bool // body carries sub-TLV records
}

// TagDescriptor is the catalog entry for a proprietary tag.
type TagDescriptor struct {
	ID          TagID
	Name        string
	FixedLength int // 0 means any length up to the tag length limit
	Structured  bool
}

// Catalog maps field ids and tag ids to their encoding policy.
// It is immutable once built and safe to share between goroutines.
type Catalog struct {
	fields   [MaxFieldNumber + 1]*FieldDescriptor
	tags     map[TagID]TagDescriptor
	subtags  map[string]TagID
	subnames map[TagID]string
}

// opaqueDescriptor is applied to uncatalogued field ids: the raw bytes
// travel behind a 3-digit length prefix and are never interpreted.
var opaqueDescriptor = FieldDescriptor{
	Kind:      KindUnknown,
	Encoding:  EncodingBinary,
	Length:    LengthLLLVAR,
	MaxLength: 999,
}

const (
	FieldPAN            = 2
	FieldProcessingCode = 3
	FieldAmount         = 4
	FieldTransmission   = 7
	FieldSerno          = 11
	FieldAdditionalData = 48
	FieldSAF            = 60
	FieldSource         = 61
	FieldPrivateData    = 120
)

var defaultFields = []FieldDescriptor{
	{ID: 2, Name: "PAN", Kind: KindNumeric, Length: LengthLLVAR, MaxLength: 19},
	{ID: 3, Name: "ProcessingCode", Kind: KindNumeric, Encoding: EncodingBCD, MaxLength: 6},
	{ID: 4, Name: "Amount", Kind: KindNumeric, MaxLength: 12},
	{ID: 7, Name: "TransmissionDateTime", Kind: KindNumeric, MaxLength: 10},
	{ID: 11, Name: "Serno", Kind: KindNumeric, MaxLength: SernoWidth, Mandatory: true},
	{ID: 12, Name: "LocalTime", Kind: KindNumeric, Encoding: EncodingBCD, MaxLength: 6},
	{ID: 13, Name: "LocalDate", Kind: KindNumeric, Encoding: EncodingBCD, MaxLength: 4},
	{ID: 14, Name: "ExpiryDate", Kind: KindNumeric, MaxLength: 4},
	{ID: 18, Name: "MerchantType", Kind: KindNumeric, MaxLength: 4},
	{ID: 22, Name: "POSEntryMode", Kind: KindNumeric, MaxLength: 3},
	{ID: 25, Name: "POSCondition", Kind: KindNumeric, MaxLength: 2},
	{ID: 32, Name: "AcquirerID", Kind: KindNumeric, Length: LengthLLVAR, MaxLength: 11},
	{ID: 35, Name: "Track2", Kind: KindAlphanumeric, Length: LengthLLVAR, MaxLength: 37},
	{ID: 37, Name: "RRN", Kind: KindAlphanumeric, MaxLength: 12},
	{ID: 38, Name: "AuthCode", Kind: KindAlphanumeric, MaxLength: 6},
	{ID: 39, Name: "ResponseCode", Kind: KindAlphanumeric, MaxLength: 2},
	{ID: 41, Name: "TerminalID", Kind: KindAlphanumeric, MaxLength: 8},
	{ID: 42, Name: "MerchantID", Kind: KindAlphanumeric, MaxLength: 15},
	{ID: 43, Name: "MerchantName", Kind: KindAlphanumeric, MaxLength: 40},
	{ID: 48, Name: "AdditionalData", Kind: KindAlphanumeric, Length: LengthLLLVAR, MaxLength: 999, Structured: true},
	{ID: 49, Name: "Currency", Kind: KindNumeric, MaxLength: 3},
	{ID: 52, Name: "PIN", Kind: KindBinary, Encoding: EncodingBinary, MaxLength: 8},
	{ID: 55, Name: "ICC", Kind: KindBinary, Encoding: EncodingBinary, Length: LengthLLLVAR, MaxLength: 255},
	{ID: 60, Name: "SAF", Kind: KindAlphanumeric, MaxLength: 1},
	{ID: 61, Name: "Source", Kind: KindAlphanumeric, MaxLength: 1},
	{ID: 64, Name: "MAC", Kind: KindBinary, Encoding: EncodingBinary, MaxLength: 8},
	{ID: 70, Name: "NetworkCode", Kind: KindNumeric, MaxLength: 3},
	{ID: 90, Name: "OriginalData", Kind: KindNumeric, MaxLength: 42},
	{ID: 102, Name: "Account1", Kind: KindAlphanumeric, Length: LengthLLVAR, MaxLength: 28},
	{ID: 103, Name: "Account2", Kind: KindAlphanumeric, Length: LengthLLVAR, MaxLength: 28},
	{ID: 120, Name: "PrivateData", Kind: KindAlphanumeric, Length: LengthLLLVAR, MaxLength: 999, Structured: true},
	{ID: 128, Name: "MAC2", Kind: KindBinary, Encoding: EncodingBinary, MaxLength: 8},
}

var defaultTags = []TagDescriptor{
	{ID: ShortTag(0), Name: "PAN"},
	{ID: ShortTag(1), Name: "TransactionType"},
	{ID: ShortTag(2), Name: "Currency"},
	{ID: ShortTag(3), Name: "Amount"},
	{ID: ShortTag(4), Name: "AccountCurrency"},
	{ID: ShortTag(5), Name: "AccountAmount"},
	{ID: ShortTag(6), Name: "OperationCode"},
	{ID: ShortTag(7), Name: "ServiceCode"},
	{ID: ShortTag(8), Name: "TerminalCurrency"},
	{ID: ShortTag(9), Name: "ExpiryDate"},
	{ID: ShortTag(10), Name: "CardExpiry"},
	{ID: ShortTag(11), Name: "EntryMode", FixedLength: 1},
	{ID: ShortTag(14), Name: "MerchantName"},
	{ID: ShortTag(16), Name: "TerminalID"},
	{ID: ShortTag(18), Name: "Recurring", FixedLength: 1},
	{ID: ShortTag(22), Name: "FeeAmount"},
	{ID: ShortTag(31), Name: "AdditionalData", Structured: true},
}

var defaultSubtags = map[string]TagID{
	"USRDT": ShortTag(1),
	"PAYID": ShortTag(2),
	"CHNL":  ShortTag(3),
	"RRNID": ShortTag(4),
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog returns the process-wide Sigma catalog. It is built on
// first use and never modified afterwards.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = newCatalog(defaultFields, defaultTags, defaultSubtags)
	})
	return defaultCatalog
}

func newCatalog(fields []FieldDescriptor, tags []TagDescriptor, subtags map[string]TagID) *Catalog {
	c := &Catalog{
		tags:     make(map[TagID]TagDescriptor, len(tags)),
		subtags:  make(map[string]TagID, len(subtags)),
		subnames: make(map[TagID]string, len(subtags)),
	}
	for i := range fields {
		fd := fields[i]
		if fd.Kind == KindBinary {
			fd.Encoding = EncodingBinary
		}
		c.fields[fd.ID] = &fd
	}
	for _, td := range tags {
		c.tags[td.ID] = td
	}
	for name, id := range subtags {
		c.subtags[name] = id
		c.subnames[id] = name
	}
	return c
}

// Lookup returns the descriptor for a field id. Unknown ids report false.
func (c *Catalog) Lookup(id int) (FieldDescriptor, bool) {
	if id < 2 || id > MaxFieldNumber || c.fields[id] == nil {
		return FieldDescriptor{}, false
	}
	return *c.fields[id], true
}

// descriptor returns the catalog entry or the opaque fallback.
func (c *Catalog) descriptor(id int) (FieldDescriptor, bool) {
	if fd, ok := c.Lookup(id); ok {
		return fd, true
	}
	fd := opaqueDescriptor
	fd.ID = id
	return fd, false
}

// LookupTag returns the descriptor for a tag id.
func (c *Catalog) LookupTag(id TagID) (TagDescriptor, bool) {
	td, ok := c.tags[id]
	return td, ok
}

// SubtagID resolves a sub-tag name such as "USRDT".
func (c *Catalog) SubtagID(name string) (TagID, bool) {
	id, ok := c.subtags[name]
	return id, ok
}

// SubtagName returns the registered name for a sub-tag id.
func (c *Catalog) SubtagName(id TagID) (string, bool) {
	name, ok := c.subnames[id]
	return name, ok
}

// Mandatory returns the ids of mandatory fields in ascending order.
func (c *Catalog) Mandatory() []int {
	var ids []int
	for id := 2; id <= MaxFieldNumber; id++ {
		if fd := c.fields[id]; fd != nil && fd.Mandatory {
			ids = append(ids, id)
		}
	}
	return ids
}

// Fields returns a copy of all field descriptors in ascending id order.
func (c *Catalog) Fields() []FieldDescriptor {
	out := make([]FieldDescriptor, 0, len(defaultFields))
	for id := 2; id <= MaxFieldNumber; id++ {
		if fd := c.fields[id]; fd != nil {
			out = append(out, *fd)
		}
	}
	return out
}

// Tags returns a copy of all tag descriptors in ascending tag order.
func (c *Catalog) Tags() []TagDescriptor {
	out := make([]TagDescriptor, 0, len(c.tags))
	for _, td := range c.tags {
		out = append(out, td)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })
	return out
}

func (c *Catalog) subtagMap() map[string]TagID {
	out := make(map[string]TagID, len(c.subtags))
	for k, v := range c.subtags {
		out[k] = v
	}
	return out
}
