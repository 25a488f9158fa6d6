package translatex

import "testing"

func TestComputeSourceHash_StableAcrossVolatileChurn(t *testing.T) {
	base := `<html><body>
		<p>Hello</p>
		<script>var token = "abc123";</script>
		<style>.a { color: red; }</style>
		<input type="hidden" name="_wpnonce" value="deadbeef">
		<form nonce="f00d"><button>Go</button></form>
	</body></html>`

	churned := `<html><body>
		<p>Hello</p>
		<script>var token = "zzz999";</script>
		<style>.a { color: blue; }</style>
		<input type="hidden" name="_wpnonce" value="cafebabe">
		<form nonce="0ff1ce"><button>Go</button></form>
	</body></html>`

	if ComputeSourceHash(base) != ComputeSourceHash(churned) {
		t.Error("Script, style and nonce churn must not change the fingerprint")
	}
}

func TestComputeSourceHash_SensitiveToVisibleContent(t *testing.T) {
	a := ComputeSourceHash(`<html><body><p>Hello</p></body></html>`)
	b := ComputeSourceHash(`<html><body><p>Goodbye</p></body></html>`)
	if a == b {
		t.Error("A visible content edit must change the fingerprint")
	}
}

func TestComputeSourceHash_WhitespaceCollapsed(t *testing.T) {
	a := ComputeSourceHash("<p>Hello   world</p>")
	b := ComputeSourceHash("<p>Hello\n\tworld</p>")
	if a != b {
		t.Error("Whitespace-only differences must not change the fingerprint")
	}
}

func TestComputeSourceHash_SingleQuotedNonce(t *testing.T) {
	a := ComputeSourceHash(`<form nonce='aaa'><p>x</p></form>`)
	b := ComputeSourceHash(`<form nonce='bbb'><p>x</p></form>`)
	if a != b {
		t.Error("Single-quoted nonce churn must not change the fingerprint")
	}
}

func TestComputeSourceHash_Empty(t *testing.T) {
	if got := ComputeSourceHash(""); got != "" {
		t.Errorf("ComputeSourceHash(\"\") = %q, want empty", got)
	}
}

func TestMatchesSourceHash(t *testing.T) {
	hash := ComputeSourceHash("<p>Hello</p>")

	tests := []struct {
		name     string
		entry    *PageEntry
		expected string
		want     bool
	}{
		{"match", &PageEntry{SourceHash: hash}, hash, true},
		{"mismatch", &PageEntry{SourceHash: hash}, ComputeSourceHash("<p>Bye</p>"), false},
		{"nil entry", nil, hash, false},
		{"legacy entry without fingerprint", &PageEntry{}, hash, false},
		{"empty expected", &PageEntry{SourceHash: hash}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesSourceHash(tt.entry, tt.expected); got != tt.want {
				t.Errorf("MatchesSourceHash = %v, want %v", got, tt.want)
			}
		})
	}
}
