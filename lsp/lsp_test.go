package lsp

import "testing"

func TestDiagnosticsForCleanSource(t *testing.T) {
	diags := diagnosticsFor("test", "local x = 1\nreturn x")
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics, got %v", diags)
	}
}

func TestDiagnosticsForSyntaxError(t *testing.T) {
	diags := diagnosticsFor("test", "local = 1")
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", len(diags))
	}
	if diags[0].Message == "" {
		t.Fatalf("expected a non-empty diagnostic message")
	}
}

func TestDiagnosticsForReportsLine(t *testing.T) {
	diags := diagnosticsFor("test", "local x = 1\nlocal = 2")
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", len(diags))
	}
	if diags[0].Range.Start.Line != 1 {
		t.Fatalf("diagnostic line = %d, want 1 (0-based for source line 2)", diags[0].Range.Start.Line)
	}
}
