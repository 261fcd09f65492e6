package wrappers

import (
	"time"

	"github.com/user/secgate/pkg/engine"
)

// Gitleaks scans a source tree for hardcoded secrets. gitleaks exits 1 when
// leaks are found.
func Gitleaks(source, reportPath string) Wrapper {
	return Wrapper{
		Scanner:     engine.ScannerSecret,
		Tool:        "gitleaks",
		Args:        []string{"detect", "--source", source, "--report-format", "json", "--report-path", reportPath, "--no-banner"},
		Reports:     []string{reportPath},
		Timeout:     10 * time.Minute,
		OKExitCodes: []int{1},
	}
}

// TrivyFS scans dependency manifests under target and writes SARIF.
func TrivyFS(target, reportPath string) Wrapper {
	return Wrapper{
		Scanner: engine.ScannerDependency,
		Tool:    "trivy",
		Args:    []string{"fs", "--scanners", "vuln", "--format", "sarif", "--output", reportPath, "--exit-code", "0", target},
		Reports: []string{reportPath},
		Timeout: 15 * time.Minute,
	}
}

// ZAPBaseline runs the ZAP baseline scan in a container against a running
// application. reportDir is mounted as the container's working directory.
// zap-baseline exits 1 on FAIL and 2 on WARN.
func ZAPBaseline(target, reportDir, reportName string) Wrapper {
	return Wrapper{
		Scanner: engine.ScannerDynamicWeb,
		Tool:    "docker",
		Args: []string{
			"run", "--rm", "--network", "host",
			"-v", reportDir + ":/zap/wrk:rw",
			"ghcr.io/zaproxy/zaproxy:stable",
			"zap-baseline.py", "-t", target, "-J", reportName, "-I",
		},
		Reports:     []string{reportDir + "/" + reportName},
		Timeout:     20 * time.Minute,
		OKExitCodes: []int{1, 2},
	}
}

// PIIScanner runs the pipeline's PII scanner script. It exits 1 when it
// reports non-allowlisted findings.
func PIIScanner(script, root, allowlistPath, reportPath string) Wrapper {
	args := []string{script, "--root", root, "--output", reportPath}
	if allowlistPath != "" {
		args = append(args, "--allowlist", allowlistPath)
	}
	return Wrapper{
		Scanner:     engine.ScannerPII,
		Tool:        "python3",
		Args:        args,
		Reports:     []string{reportPath},
		Timeout:     10 * time.Minute,
		OKExitCodes: []int{1},
	}
}
