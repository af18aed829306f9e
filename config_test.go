package sigma

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const overlayYAML = `
fields:
  - id: 5
    name: SettlementAmount
    kind: n
    max_length: 8
tags:
  - id: 40
    name: Terminal
    structured: true
subtags:
  TERM: 5
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigWithCatalogOverlay(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "catalog.yaml", overlayYAML)
	path := writeFile(t, dir, "sigma.toml", `
tag_length = "binary"
max_frame_length = 4096
strict_validation = true
catalog_file = "catalog.yaml"
log_level = "debug"
concurrency = 2
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxFrameLength != 4096 || cfg.Concurrency != 2 || !cfg.StrictValidation {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	opts, err := cfg.CodecOptions(zerolog.Nop())
	if err != nil {
		t.Fatalf("codec options: %v", err)
	}
	codec := NewCodec(opts...)
	if codec.TagLengthMode() != TagLengthBinary {
		t.Fatalf("tag length mode not applied")
	}
	if fd, ok := codec.Catalog().Lookup(5); !ok || fd.MaxLength != 8 {
		t.Fatalf("field 5 not added: %+v", fd)
	}
	if _, ok := DefaultCatalog().Lookup(5); ok {
		t.Fatalf("overlay leaked into the default catalog")
	}

	term := NewSubfields()
	id, ok := codec.Catalog().SubtagID("TERM")
	if !ok {
		t.Fatalf("TERM subtag not registered")
	}
	if err := term.Set(id, []byte("T-0042")); err != nil {
		t.Fatalf("set TERM: %v", err)
	}

	msg := codec.NewMessage()
	serno, _ := ParseSerno("77")
	if err := msg.SetMTI("0100"); err != nil {
		t.Fatalf("mti: %v", err)
	}
	if err := msg.SetSerno(serno); err != nil {
		t.Fatalf("serno: %v", err)
	}
	if err := msg.SetField(5, int64(1500)); err != nil {
		t.Fatalf("field 5: %v", err)
	}
	if err := msg.SetTag(ShortTag(40), term); err != nil {
		t.Fatalf("tag 40: %v", err)
	}

	frame, err := codec.Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := codec.DecodeFrame(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Warnings()) != 0 {
		t.Fatalf("unexpected warnings: %v", decoded.Warnings())
	}
	if v, _ := decoded.GetString(5); v != "00001500" {
		t.Fatalf("field 5 = %q", v)
	}
	subs, err := decoded.TagSubfields(ShortTag(40))
	if err != nil {
		t.Fatalf("tag 40 subfields: %v", err)
	}
	if v, _ := subs.GetString(id); v != "T-0042" {
		t.Fatalf("TERM = %q", v)
	}

	frames, err := NewFrameDecoder(cfg.FrameOptions(zerolog.Nop())...).Feed(frame)
	if err != nil || len(frames) != 1 {
		t.Fatalf("frame decoder from config: frames=%d err=%v", len(frames), err)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.TagLength != "bcd" || cfg.MaxFrameLength != DefaultMaxFrame || cfg.LogLevel != "info" || cfg.Concurrency != defaultConcurrency {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	catalog, err := cfg.Catalog()
	if err != nil || catalog != DefaultCatalog() {
		t.Fatalf("expected default catalog, err %v", err)
	}
	if lvl := cfg.Logger(zerolog.Nop().Level(zerolog.TraceLevel)).GetLevel(); lvl != zerolog.InfoLevel {
		t.Fatalf("logger level %s", lvl)
	}
}

func TestParseConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"tag length":  `tag_length = "ascii"`,
		"frame small": `max_frame_length = 4`,
		"frame large": `max_frame_length = 70000`,
		"log level":   `log_level = "loud"`,
		"concurrency": `concurrency = -1`,
		"catalog ext": `catalog_file = "catalog.txt"`,
		"syntax":      `tag_length = `,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(src)); err == nil {
				t.Fatalf("expected error for %s", src)
			}
		})
	}
}

func TestLoadCatalogJSONRejectsBCDText(t *testing.T) {
	_, err := LoadCatalogJSON([]byte(`{"fields": [{"id": 5, "kind": "ans", "encoding": "bcd", "max_length": 4}]}`))
	if err == nil || !strings.Contains(err.Error(), "bcd encoding requires numeric kind") {
		t.Fatalf("expected bcd/kind error, got %v", err)
	}
}

func TestConfigMissingCatalogFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "sigma.toml", `catalog_file = "absent.json"`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := cfg.CodecOptions(zerolog.Nop()); err == nil {
		t.Fatalf("expected missing catalog error")
	}
}
