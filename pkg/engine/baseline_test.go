package engine

import "testing"

func TestCompareBaseline(t *testing.T) {
	// Baseline run: two findings.
	baseline := []Finding{
		secret("rule-a", "asset1.txt", 1, Medium, `{}`),
		secret("rule-a", "asset2.txt", 1, Medium, `{}`),
	}

	// Current run: asset1 still there (severity changed), asset2 gone, asset3 new.
	current := []Finding{
		secret("rule-a", "asset1.txt", 1, High, `{}`),
		secret("rule-b", "asset3.txt", 9, Critical, `{}`),
	}

	diff := CompareBaseline(current, baseline)

	if len(diff.Unchanged) != 1 {
		t.Errorf("Expected 1 unchanged finding, got %d", len(diff.Unchanged))
	} else if diff.Unchanged[0].Location.Path != "asset1.txt" {
		t.Errorf("Expected Unchanged to be asset1.txt, got %s", diff.Unchanged[0].Location)
	}

	if len(diff.New) != 1 {
		t.Errorf("Expected 1 new finding, got %d", len(diff.New))
	} else if diff.New[0].Location.Path != "asset3.txt" {
		t.Errorf("Expected New to be asset3.txt, got %s", diff.New[0].Location)
	}

	if len(diff.Fixed) != 1 {
		t.Errorf("Expected 1 fixed finding, got %d", len(diff.Fixed))
	} else if diff.Fixed[0].Location.Path != "asset2.txt" {
		t.Errorf("Expected Fixed to be asset2.txt, got %s", diff.Fixed[0].Location)
	}
}
