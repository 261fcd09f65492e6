package parsers

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/user/secgate/pkg/engine"
)

const zapJSON = `{
  "@version": "2.14.0",
  "@generated": "Mon, 1 Jan 2024 10:00:00",
  "site": [{
    "@name": "http://localhost:8080",
    "@host": "localhost",
    "alerts": [
      {"pluginid": "10038", "alertRef": "10038-1", "alert": "Content Security Policy (CSP) Header Not Set",
       "riskcode": "2", "confidence": "3",
       "instances": [
         {"uri": "http://localhost:8080/", "method": "GET", "param": ""},
         {"uri": "http://localhost:8080/login", "method": "GET", "param": ""}
       ]},
      {"pluginid": "10096", "alert": "Timestamp Disclosure", "riskcode": "0", "instances": []},
      {"pluginid": "40012", "alert": "Cross Site Scripting (Reflected)", "riskcode": "7",
       "instances": [{"uri": "http://localhost:8080/search", "method": "POST", "param": "q"}]},
      {"alert": "no id", "riskcode": "1"}
    ]
  }]
}`

func TestDynamicWebParserZAP(t *testing.T) {
	res, err := DynamicWebParser{}.Parse("zap.json", strings.NewReader(zapJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	type row struct {
		ID  string
		Sev engine.Severity
		Loc string
	}
	var got []row
	for _, f := range res.Findings {
		got = append(got, row{f.Identifier, f.Severity, f.Location.String()})
	}
	want := []row{
		{"10038-1", engine.Medium, "GET http://localhost:8080/"},
		{"10038-1", engine.Medium, "GET http://localhost:8080/login"},
		{"10096", engine.Info, "http://localhost:8080"},
		{"40012", engine.Critical, "POST http://localhost:8080/search [q]"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("findings mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 2 {
		t.Errorf("expected warnings for the unknown riskcode and the alert without id, got %+v", res.Warnings)
	}

	// Each instance carries only its own URL in the raw payload.
	var raw struct {
		Instances []struct {
			URI string `json:"uri"`
		} `json:"instances"`
	}
	if err := json.Unmarshal(res.Findings[1].Raw, &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw.Instances) != 1 || raw.Instances[0].URI != "http://localhost:8080/login" {
		t.Errorf("raw payload not narrowed to its instance: %s", res.Findings[1].Raw)
	}
}

func TestDynamicWebInstanceRawKeepsScannerBytes(t *testing.T) {
	report := `{"site": [{"@name": "http://h", "alerts": [
  {"pluginid": "40012", "alert": "Reflected XSS <script>", "riskcode": "3",
   "instances": [{"uri": "http://h/s?a=1&b=2", "method": "GET"}, {"uri": "http://h/other", "method": "GET"}],
   "solution": "Encode output"}
]}]}`
	res, err := DynamicWebParser{}.Parse("zap.json", strings.NewReader(report))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(res.Findings))
	}
	raw := string(res.Findings[0].Raw)
	if res.Findings[0].Location.URL != "http://h/s?a=1&b=2" {
		raw = string(res.Findings[1].Raw)
	}
	want := `{"pluginid": "40012", "alert": "Reflected XSS <script>", "riskcode": "3",
   "instances":[{"uri": "http://h/s?a=1&b=2", "method": "GET"}],
   "solution": "Encode output"}`
	if raw != want {
		t.Errorf("narrowed raw payload:\n%s\nwant:\n%s", raw, want)
	}
	if !json.Valid([]byte(raw)) {
		t.Error("narrowed raw payload is not valid JSON")
	}
}

func TestDynamicWebParserMalformed(t *testing.T) {
	for name, in := range map[string]string{
		"truncated": `{"@version": "2.14.0", "site": [`,
		"no site":   `{"@version": "2.14.0"}`,
		"array":     `[1, 2]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DynamicWebParser{}.Parse("zap.json", strings.NewReader(in))
			var me *engine.MalformedReportError
			if !errors.As(err, &me) || me.Scanner != engine.ScannerDynamicWeb {
				t.Fatalf("expected dynamic-web MalformedReportError, got %v", err)
			}
		})
	}
}

func TestDynamicWebParserNikto(t *testing.T) {
	in := `{"host": "localhost", "ip": "127.0.0.1", "port": "8080", "vulnerabilities": [
	  {"id": "999986", "OSVDB": "0", "method": "GET", "url": "/", "msg": "The X-Content-Type-Options header is not set."},
	  {"msg": "missing id"}
	]}`
	res, err := DynamicWebParser{}.Parse("nikto.json", strings.NewReader(in))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Findings) != 1 {
		t.Fatalf("expected 1 finding, got %+v", res.Findings)
	}
	f := res.Findings[0]
	if f.Identifier != "nikto-999986" || f.Location.URL != "localhost:8080/" || f.Severity != engine.Info {
		t.Errorf("unexpected nikto finding %+v", f)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %+v", res.Warnings)
	}
}
