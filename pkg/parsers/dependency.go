package parsers

import (
	"bufio"
	"io"
	"strings"

	"github.com/user/secgate/pkg/engine"
)

// DependencyParser reads SARIF from dependency scanners (trivy, grype,
// osv-scanner, snyk). Callers pass one report per ecosystem.
type DependencyParser struct{}

func (DependencyParser) Scanner() engine.Scanner { return engine.ScannerDependency }

func (DependencyParser) Parse(source string, r io.Reader) (Result, error) {
	res := Result{Scanner: engine.ScannerDependency, Source: source, Findings: []engine.Finding{}}
	data, empty, err := readReport(r)
	if err != nil {
		return res, malformed(res.Scanner, source, "read: %v", err)
	}
	if empty {
		return res, nil
	}

	err = walkSARIF(&res, data, func(rec sarifRecord) {
		if rec.result.RuleID == "" {
			res.warn(rec.index, "SARIF result without ruleId")
			return
		}
		manifest, _ := rec.artifact()
		pkg, version := packageCoordinate(rec)
		desc := rec.description()
		if rec.rule != nil && strings.TrimSpace(rec.rule.ShortDescription.Text) != "" {
			desc = strings.TrimSpace(rec.rule.ShortDescription.Text)
		}
		res.Findings = append(res.Findings, engine.Finding{
			Scanner:     engine.ScannerDependency,
			Identifier:  rec.result.RuleID,
			Severity:    rec.severity(&res, engine.Info),
			Location:    engine.ManifestLocation(manifest, pkg, version),
			Description: desc,
			Raw:         rec.raw,
		})
	})
	return res, err
}

// packageCoordinate extracts the vulnerable package from, in order: result
// properties, a "name@version" logical location, or trivy's message lines
// ("Package: x", "Installed Version: y").
func packageCoordinate(rec sarifRecord) (string, string) {
	props := rec.result.Properties
	pkg := firstNonEmpty(stringProp(props, "packageName"), stringProp(props, "package"), stringProp(props, "pkgName"))
	version := firstNonEmpty(stringProp(props, "packageVersion"), stringProp(props, "installedVersion"), stringProp(props, "version"))
	if pkg != "" {
		return pkg, version
	}

	for _, loc := range rec.result.Locations {
		for _, ll := range loc.LogicalLocations {
			name := firstNonEmpty(ll.FullyQualifiedName, ll.Name)
			if i := strings.LastIndex(name, "@"); i > 0 {
				return name[:i], name[i+1:]
			}
			if name != "" {
				return name, version
			}
		}
	}

	sc := bufio.NewScanner(strings.NewReader(rec.result.Message.Text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "Package:"); ok {
			pkg = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "Installed Version:"); ok {
			version = strings.TrimSpace(v)
		}
	}
	return pkg, version
}

func stringProp(props map[string]interface{}, key string) string {
	if s, ok := props[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
