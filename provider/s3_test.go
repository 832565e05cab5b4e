package provider

import "testing"

func TestS3Provider_BuildKey(t *testing.T) {
	cases := []struct {
		prefix  string
		subPath string
		want    string
	}{
		{"", "a/b.txt", "a/b.txt"},
		{"", "/a/b.txt", "a/b.txt"},
		{"jobs/abc123", "dist/index.html", "jobs/abc123/dist/index.html"},
		{"jobs/abc123", "/dist/index.html", "jobs/abc123/dist/index.html"},
		{"deployments", `win\style\path.js`, "deployments/win/style/path.js"},
	}

	for _, c := range cases {
		p := &S3Provider{prefix: c.prefix}
		if got := p.buildKey(c.subPath); got != c.want {
			t.Errorf("buildKey(%q) with prefix %q = %q, want %q", c.subPath, c.prefix, got, c.want)
		}
	}
}
