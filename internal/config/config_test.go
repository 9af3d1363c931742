package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func validFile() *File {
	return &File{
		EntryPoints: map[string]EntryPoint{
			"web": {Address: ":8080"},
		},
		HTTP: HTTPConfig{
			Routers: map[string]HTTPRouter{
				"r1": {EntryPoints: []string{"web"}, Rule: "PathPrefix(`/`)", Service: "s1"},
			},
			Services: map[string]Service{
				"s1": {LoadBalancer: &LoadBalancerService{Servers: []Server{{URL: "http://127.0.0.1:9000"}}}},
			},
		},
	}
}

func TestValidate_AcceptsMinimalValidFile(t *testing.T) {
	if err := Validate(validFile()); err != nil {
		t.Fatalf("want no error, got %v", err)
	}
}

func TestValidate_RouterUnknownService(t *testing.T) {
	f := validFile()
	f.HTTP.Routers["r1"] = HTTPRouter{EntryPoints: []string{"web"}, Rule: "PathPrefix(`/`)", Service: "missing"}
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown service "missing"`)
}

func TestValidate_RouterMissingRule(t *testing.T) {
	f := validFile()
	f.HTTP.Routers["r1"] = HTTPRouter{EntryPoints: []string{"web"}, Service: "s1"}
	err := assertValidationError(t, f)
	assertContains(t, err, "rule is required")
}

func TestValidate_RouterUnknownEntryPoint(t *testing.T) {
	f := validFile()
	f.HTTP.Routers["r1"] = HTTPRouter{EntryPoints: []string{"missing"}, Rule: "PathPrefix(`/`)", Service: "s1"}
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown entryPoint "missing"`)
}

func TestValidate_RouterUnknownMiddleware(t *testing.T) {
	f := validFile()
	r := f.HTTP.Routers["r1"]
	r.Middlewares = []string{"missing"}
	f.HTTP.Routers["r1"] = r
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown middleware "missing"`)
}

func TestValidate_RouterUnknownTLSOptions(t *testing.T) {
	f := validFile()
	r := f.HTTP.Routers["r1"]
	r.TLS = "missing"
	f.HTTP.Routers["r1"] = r
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown tls options "missing"`)
}

func TestValidate_EntryPointUnknownMiddleware(t *testing.T) {
	f := validFile()
	f.EntryPoints["web"] = EntryPoint{Address: ":8080", HTTP: EntryPointHTTP{Middlewares: []string{"missing"}}}
	err := assertValidationError(t, f)
	assertContains(t, err, `entryPoint "web": unknown middleware "missing"`)
}

func TestValidate_LoadBalancerNoServers(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{LoadBalancer: &LoadBalancerService{}}
	err := assertValidationError(t, f)
	assertContains(t, err, "loadBalancer has no servers")
}

func TestValidate_LoadBalancerUnknownServersTransport(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{LoadBalancer: &LoadBalancerService{
		Servers:          []Server{{URL: "http://127.0.0.1:9000"}},
		ServersTransport: "missing",
	}}
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown serversTransport "missing"`)
}

func TestValidate_ServiceWithNoKindDefined(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{}
	err := assertValidationError(t, f)
	assertContains(t, err, "no loadBalancer/weighted/mirroring/failover defined")
}

func TestValidate_WeightedUnknownChild(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Weighted: &WeightedService{Services: []WeightedChild{{Name: "missing", Weight: 1}}}}
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown weighted child "missing"`)
}

func TestValidate_WeightedNoChildren(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Weighted: &WeightedService{}}
	err := assertValidationError(t, f)
	assertContains(t, err, "weighted has no children")
}

func TestValidate_MirroringUnknownPrimaryAndTarget(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Mirroring: &MirroringService{
		Service: "missing-primary",
		Mirrors: []MirrorTarget{{Name: "missing-mirror", Percent: 10}},
	}}
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown mirroring primary "missing-primary"`)
	assertContains(t, err, `unknown mirror target "missing-mirror"`)
}

func TestValidate_FailoverUnknownPrimaryAndFallback(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Failover: &FailoverService{Service: "missing-a", Fallback: "missing-b"}}
	err := assertValidationError(t, f)
	assertContains(t, err, `unknown failover primary "missing-a"`)
	assertContains(t, err, `unknown failover fallback "missing-b"`)
}

func TestValidate_MiddlewareChainSelfReference(t *testing.T) {
	f := validFile()
	f.HTTP.Middlewares = map[string]Middleware{
		"c1": {Chain: &ChainOptions{Middlewares: []string{"c1"}}},
	}
	err := assertValidationError(t, f)
	assertContains(t, err, `chain references itself`)
}

func TestValidate_MiddlewareChainUnknownMember(t *testing.T) {
	f := validFile()
	f.HTTP.Middlewares = map[string]Middleware{
		"c1": {Chain: &ChainOptions{Middlewares: []string{"missing"}}},
	}
	err := assertValidationError(t, f)
	assertContains(t, err, `chain references unknown middleware "missing"`)
}

func TestValidate_WeightedSelfReferenceIsCycle(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Weighted: &WeightedService{Services: []WeightedChild{{Name: "s1", Weight: 1}}}}
	err := assertValidationError(t, f)
	assertContains(t, err, "service reference cycle")
	assertContains(t, err, "s1 -> s1")
}

func TestValidate_WeightedTwoServiceCycle(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Weighted: &WeightedService{Services: []WeightedChild{{Name: "s2", Weight: 1}}}}
	f.HTTP.Services["s2"] = Service{Weighted: &WeightedService{Services: []WeightedChild{{Name: "s1", Weight: 1}}}}
	err := assertValidationError(t, f)
	assertContains(t, err, "service reference cycle")
}

func TestValidate_FailoverCycleAcrossThreeServices(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s1"] = Service{Failover: &FailoverService{Service: "s2", Fallback: "s2"}}
	f.HTTP.Services["s2"] = Service{Mirroring: &MirroringService{Service: "s3"}}
	f.HTTP.Services["s3"] = Service{Failover: &FailoverService{Service: "s1", Fallback: "s1"}}
	err := assertValidationError(t, f)
	assertContains(t, err, "service reference cycle")
}

func TestValidate_AcyclicCompositeGraphPasses(t *testing.T) {
	f := validFile()
	f.HTTP.Services["s2"] = Service{LoadBalancer: &LoadBalancerService{Servers: []Server{{URL: "http://127.0.0.1:9001"}}}}
	f.HTTP.Services["s1"] = Service{Weighted: &WeightedService{Services: []WeightedChild{{Name: "s2", Weight: 1}}}}
	if err := Validate(f); err != nil {
		t.Fatalf("want no error for an acyclic composite graph, got %v", err)
	}
}

func TestValidate_TCPRouterUnknownService(t *testing.T) {
	f := validFile()
	f.TCP.Routers = map[string]TCPRouter{
		"tr1": {EntryPoints: []string{"web"}, Service: "missing"},
	}
	err := assertValidationError(t, f)
	assertContains(t, err, `tcp router "tr1": unknown service "missing"`)
}

func TestValidate_UDPRouterUnknownService(t *testing.T) {
	f := validFile()
	f.UDP.Routers = map[string]UDPRouter{
		"ur1": {EntryPoints: []string{"web"}, Service: "missing"},
	}
	err := assertValidationError(t, f)
	assertContains(t, err, `udp router "ur1": unknown service "missing"`)
}

func TestValidate_AggregatesMultipleErrors(t *testing.T) {
	f := validFile()
	f.HTTP.Routers["r1"] = HTTPRouter{EntryPoints: []string{"missing-ep"}, Rule: "", Service: "missing-svc"}
	err := assertValidationError(t, f)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("want *ValidationError, got %T", err)
	}
	if len(ve.Errors) < 3 {
		t.Fatalf("want at least 3 aggregated errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
}

func assertValidationError(t *testing.T, f *File) error {
	t.Helper()
	err := Validate(f)
	if err == nil {
		t.Fatal("want validation error, got nil")
	}
	return err
}

func assertContains(t *testing.T, err error, substr string) {
	t.Helper()
	if !containsString(err.Error(), substr) {
		t.Fatalf("want error to contain %q, got %q", substr, err.Error())
	}
}

func containsString(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

func TestDuration_UnmarshalsCompoundForm(t *testing.T) {
	f, warnings, err := Parse([]byte(`
entryPoints:
  web:
    address: ":8080"
    keepAlive:
      idleTimeout: 1h30m
http:
  routers:
    r1:
      entryPoints: ["web"]
      rule: "PathPrefix(` + "`" + `/` + "`" + `)"
      service: s1
  services:
    s1:
      loadBalancer:
        servers:
          - url: "http://127.0.0.1:9000"
`))
	if err != nil {
		t.Fatalf("unexpected parse error: %v, warnings=%v", err, warnings)
	}
	got := f.EntryPoints["web"].KeepAlive.IdleTimeout.Duration()
	if got != 90*time.Minute {
		t.Fatalf("want 90m, got %s", got)
	}
}

func TestDuration_EmptyStringIsZero(t *testing.T) {
	var node yaml.Node
	if err := node.Encode(""); err != nil {
		t.Fatal(err)
	}
	var d Duration
	if err := d.UnmarshalYAML(&node); err != nil {
		t.Fatal(err)
	}
	if d.Duration() != 0 {
		t.Fatalf("want zero duration, got %s", d.Duration())
	}
}

func TestDuration_RejectsMalformedValue(t *testing.T) {
	_, _, err := Parse([]byte(`
entryPoints:
  web:
    address: ":8080"
    keepAlive:
      idleTimeout: "not-a-duration"
http:
  routers: {}
  services: {}
`))
	if err == nil {
		t.Fatal("want error for malformed duration")
	}
}

func TestParse_UnknownTopLevelFieldWarns(t *testing.T) {
	f, warnings, err := Parse([]byte(`
entryPoints:
  web:
    address: ":8080"
http:
  routers: {}
  services: {}
bogusTopLevelField: true
`))
	if err != nil {
		t.Fatalf("unknown fields should warn, not fail: %v", err)
	}
	if f == nil {
		t.Fatal("want non-nil file even with warnings")
	}
	if len(warnings) == 0 {
		t.Fatal("want at least one warning for the unknown top-level field")
	}
}

func TestParse_ValidFileNoWarnings(t *testing.T) {
	_, warnings, err := Parse([]byte(`
entryPoints:
  web:
    address: ":8080"
http:
  routers:
    r1:
      entryPoints: ["web"]
      rule: "PathPrefix(` + "`" + `/` + "`" + `)"
      service: s1
  services:
    s1:
      loadBalancer:
        servers:
          - url: "http://127.0.0.1:9000"
`))
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("want no warnings for a fully known config, got %v", warnings)
	}
}
