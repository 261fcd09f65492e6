package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// zapRisk is ZAP's alert riskcode vocabulary.
type zapRisk string

const (
	zapInformational zapRisk = "0"
	zapLow           zapRisk = "1"
	zapMedium        zapRisk = "2"
	zapHigh          zapRisk = "3"
)

var zapRisks = engine.NewSeverityTable("zap.riskcode",
	[]zapRisk{zapInformational, zapLow, zapMedium, zapHigh},
	map[zapRisk]engine.Severity{
		zapInformational: engine.Info,
		zapLow:           engine.Low,
		zapMedium:        engine.Medium,
		zapHigh:          engine.High,
	})

type zapReport struct {
	Version string     `json:"@version"`
	Sites   *[]zapSite `json:"site"`
}

type zapSite struct {
	Name   string            `json:"@name"`
	Alerts []json.RawMessage `json:"alerts"`
}

type zapAlert struct {
	PluginID  string        `json:"pluginid"`
	AlertRef  string        `json:"alertRef"`
	Alert     string        `json:"alert"`
	Name      string        `json:"name"`
	RiskCode  *string       `json:"riskcode"`
	Instances []zapInstance `json:"instances"`
}

type zapInstance struct {
	URI    string `json:"uri"`
	Method string `json:"method"`
	Param  string `json:"param"`
}

// NiktoRun is nikto's `-Format json` output.
type NiktoRun struct {
	Host            string             `json:"host"`
	IP              string             `json:"ip"`
	Port            json.Number        `json:"port"`
	Vulnerabilities *[]json.RawMessage `json:"vulnerabilities"`
}

type NiktoVulnerability struct {
	ID     string `json:"id"`
	Msg    string `json:"msg"`
	OSVDB  string `json:"osvdb"`
	Method string `json:"method"`
	URL    string `json:"url"`
}

// DynamicWebParser reads OWASP ZAP JSON reports, with nikto JSON accepted
// as a fallback shape.
type DynamicWebParser struct{}

func (DynamicWebParser) Scanner() engine.Scanner { return engine.ScannerDynamicWeb }

func (p DynamicWebParser) Parse(source string, r io.Reader) (Result, error) {
	res := Result{Scanner: engine.ScannerDynamicWeb, Source: source, Findings: []engine.Finding{}}
	data, empty, err := readReport(r)
	if err != nil {
		return res, malformed(res.Scanner, source, "read: %v", err)
	}
	if empty {
		return res, nil
	}

	var zr zapReport
	if err := json.Unmarshal(data, &zr); err != nil {
		return res, malformed(res.Scanner, source, "invalid ZAP JSON: %v", err)
	}
	if zr.Sites == nil {
		var nr NiktoRun
		if err := json.Unmarshal(data, &nr); err == nil && nr.Vulnerabilities != nil {
			p.parseNikto(&res, nr)
			return res, nil
		}
		return res, malformed(res.Scanner, source, "ZAP report has no site array")
	}

	record := 0
	for _, site := range *zr.Sites {
		for _, raw := range site.Alerts {
			idx := record
			record++
			var a zapAlert
			if err := json.Unmarshal(raw, &a); err != nil {
				res.warn(idx, "undecodable ZAP alert: %v", err)
				continue
			}
			id := firstNonEmpty(a.AlertRef, a.PluginID)
			if id == "" {
				res.warn(idx, "ZAP alert without pluginid or alertRef")
				continue
			}
			sev := engine.Info
			if code := optional(a.RiskCode); code != "" {
				s, ok := zapRisks.Lookup(zapRisk(code))
				if !ok {
					res.warn(idx, "unrecognized ZAP riskcode %q, treated as critical", code)
					s = engine.Critical
				}
				sev = s
			}
			desc := firstNonEmpty(a.Alert, a.Name, id)

			instances := a.Instances
			if len(instances) == 0 {
				instances = []zapInstance{{URI: site.Name}}
			}
			for i, inst := range instances {
				res.Findings = append(res.Findings, engine.Finding{
					Scanner:     engine.ScannerDynamicWeb,
					Identifier:  id,
					Severity:    sev,
					Location:    engine.EndpointLocation(inst.URI, inst.Method, inst.Param),
					Description: desc,
					Raw:         instanceRaw(raw, a.Instances, i),
				})
			}
		}
	}
	return res, nil
}

// instanceRaw narrows a ZAP alert's raw payload to one instance so that
// allowlist patterns on a URL only suppress that instance. The alert bytes
// are spliced, not re-encoded, so field order and escaping stay as the
// scanner wrote them.
func instanceRaw(alert json.RawMessage, instances []zapInstance, i int) json.RawMessage {
	if len(instances) <= 1 {
		return alert
	}
	dec := json.NewDecoder(bytes.NewReader(alert))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return alert
	}
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return alert
		}
		from := dec.InputOffset()
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return alert
		}
		if key != "instances" {
			continue
		}
		to := dec.InputOffset()

		var all []json.RawMessage
		if err := json.Unmarshal(value, &all); err != nil || i >= len(all) {
			return alert
		}
		out := make([]byte, 0, len(alert))
		out = append(out, alert[:from]...)
		out = append(out, ':', '[')
		out = append(out, all[i]...)
		out = append(out, ']')
		return append(out, alert[to:]...)
	}
	return alert
}

func (DynamicWebParser) parseNikto(res *Result, run NiktoRun) {
	base := run.Host
	if port := run.Port.String(); port != "" {
		base = fmt.Sprintf("%s:%s", run.Host, port)
	}
	for i, raw := range *run.Vulnerabilities {
		var v NiktoVulnerability
		if err := json.Unmarshal(raw, &v); err != nil {
			res.warn(i, "undecodable nikto vulnerability: %v", err)
			continue
		}
		if v.ID == "" {
			res.warn(i, "nikto vulnerability without id")
			continue
		}
		res.Findings = append(res.Findings, engine.Finding{
			Scanner:     engine.ScannerDynamicWeb,
			Identifier:  "nikto-" + v.ID,
			Severity:    engine.Info,
			Location:    engine.EndpointLocation(base+v.URL, v.Method, ""),
			Description: firstNonEmpty(strings.TrimSpace(v.Msg), v.ID),
			Raw:         raw,
		})
	}
}
