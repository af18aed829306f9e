package sigma

import (
	"errors"
	"testing"
)

const sampleRequest = `{
	"SAF": "Y",
	"SRC": "M",
	"MTI": "0200",
	"Serno": 6007040979,
	"T0000": "02371492071643",
	"T0011": "2",
	"T0014": "IDDQD Bank",
	"i048": {"USRDT": "2595100250"}
}`

func TestFromJSON(t *testing.T) {
	msg, err := FromJSON([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	if msg.MTI() != "0200" || msg.SAF() != "Y" || msg.Source() != "M" {
		t.Fatalf("unexpected header fields: %s %s %s", msg.MTI(), msg.SAF(), msg.Source())
	}
	serno, err := msg.Serno()
	if err != nil || serno.String() != "6007040979" {
		t.Fatalf("serno %s err %v", serno, err)
	}
	tag, ok := msg.Tag(ShortTag(14))
	if !ok || tag.String() != "IDDQD Bank" {
		t.Fatalf("T0014 not set")
	}
	subs, err := msg.Subfields(FieldAdditionalData)
	if err != nil {
		t.Fatalf("subfields: %v", err)
	}
	if v, _ := subs.GetString(ShortTag(1)); v != "2595100250" {
		t.Fatalf("USRDT = %q", v)
	}

	want, err := Encode(sampleMessage(t))
	if err != nil {
		t.Fatalf("encode sample: %v", err)
	}
	got, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("mapping and builder produce different frames:\n%x\n%x", got, want)
	}
}

func TestToMapRoundTrip(t *testing.T) {
	msg, err := FromJSON([]byte(sampleRequest))
	if err != nil {
		t.Fatalf("from json: %v", err)
	}
	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := defaultCodec.DecodeFrame(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	out := decoded.ToMap()
	if out[KeySerno] != "6007040979" || out[KeySAF] != "Y" || out[KeySRC] != "M" || out[KeyMTI] != "0200" {
		t.Fatalf("unexpected header values: %v", out)
	}
	if out["T0011"] != "2" {
		t.Fatalf("T0011 = %v", out["T0011"])
	}
	nested, ok := out["i048"].(map[string]any)
	if !ok || nested["USRDT"] != "2595100250" {
		t.Fatalf("i048 = %#v", out["i048"])
	}

	again, err := FromMap(out)
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	frame2, err := Encode(again)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	if string(frame) != string(frame2) {
		t.Fatalf("ToMap/FromMap changed the frame")
	}
}

func TestFromMapRequiredKeys(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{"MTI": "0200", "SAF": "N", "SRC": "M", "Serno": "1"}
	}
	for _, key := range []string{KeyMTI, KeySAF, KeySRC} {
		req := base()
		delete(req, key)
		if _, err := FromMap(req); !errors.Is(err, ErrMissingRequiredField) {
			t.Fatalf("without %s: expected ErrMissingRequiredField, got %v", key, err)
		}
		req = base()
		req[key] = 200
		if _, err := FromMap(req); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("%s as int: expected ErrInvalidValue, got %v", key, err)
		}
	}

	req := base()
	req[KeyMTI] = "02A0"
	if _, err := FromMap(req); !errors.Is(err, ErrInvalidMTI) {
		t.Fatalf("expected ErrInvalidMTI, got %v", err)
	}
}

func TestFromMapGeneratesSerno(t *testing.T) {
	msg, err := FromMap(map[string]any{"MTI": "0800", "SAF": "N", "SRC": "M"})
	if err != nil {
		t.Fatalf("from map: %v", err)
	}
	serno, err := msg.Serno()
	if err != nil {
		t.Fatalf("serno: %v", err)
	}
	if _, err := SernoFromWire([]byte(serno.String())); err != nil {
		t.Fatalf("generated serno not canonical: %v", err)
	}
}

func TestFromMapRejectsBadKeys(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  any
		want error
	}{
		{"unknown key", "amount", "100", ErrInvalidField},
		{"bad field key", "i1", "x", ErrInvalidField},
		{"bad tag key", "T00x1", "x", ErrInvalidTag},
		{"subfields on unstructured tag", "T0014", map[string]any{"USRDT": "1"}, ErrInvalidValue},
		{"unknown subtag", "T0031", map[string]any{"NOPE": "1"}, ErrInvalidTag},
		{"numeric value", "T0000", 12, ErrInvalidValue},
		{"subtag by name and key", "i048", map[string]any{"USRDT": "1", "T0001": "2"}, ErrInvalidTag},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := map[string]any{"MTI": "0200", "SAF": "N", "SRC": "M", "Serno": "1", tc.key: tc.val}
			if _, err := FromMap(req); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
