package health

import (
	"encoding/json"
	"net/http"
	"runtime"
)

// VersionInfo contains build and version information.
type VersionInfo struct {
	Version      string `json:"version"`
	Commit       string `json:"commit"`
	BuildTime    string `json:"build_time"`
	GoVersion    string `json:"go_version"`
	RulesVersion string `json:"rules_version,omitempty"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// LivenessHandler serves the liveness check. It always answers 200 while the
// process can handle requests.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, c.CheckLiveness(r.Context()))
	}
}

// ReadinessHandler serves the readiness check: 200 when every check passes,
// 503 otherwise.
//
//	{
//	    "status": "not_ready",
//	    "checks": {
//	        "rules": {"status": "ok", "duration_ms": 0.01},
//	        "catalog": {"status": "unhealthy", "message": "database is locked", "duration_ms": 2000}
//	    },
//	    "timestamp": "2024-05-01T10:30:00Z"
//	}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := c.CheckReadiness(r.Context())
		code := http.StatusOK
		if !status.Ready() {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, r, code, status)
	}
}

// VersionHandler serves build information. rulesVersion is called per
// request so the response tracks hot reloads; it may be nil.
func VersionHandler(version, commit, buildTime string, rulesVersion func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildTime: buildTime,
			GoVersion: runtime.Version(),
		}
		if rulesVersion != nil {
			info.RulesVersion = rulesVersion()
		}
		writeJSON(w, r, http.StatusOK, info)
	}
}
