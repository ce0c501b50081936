package parser

import (
	"github.com/Alain-L/lognorm/rules"
)

// FallbackName is the parser used when nothing else matches.
const FallbackName = "basic_8601"

var (
	bare = rules.Bare
	with = rules.With
)

// libraryDefinitions is the built-in parser library, in selection order.
// Images are matched without their registry host so that mirrors and
// private registries select the same parsers.
var libraryDefinitions = []Definition{
	{
		Name:           "kubernetes",
		ShowInSelector: true,
		MatchKeys: []MatchKey{
			{ImageName: "/kube-apiserver"},
			{ImageName: "/kube-controller-manager"},
			{ImageName: "/kube-scheduler"},
			{ImageName: "/kube-proxy"},
			{ImageName: "/kube-state-metrics"},
			{ImageName: "/metrics-server"},
			{ImageName: "/cluster-autoscaler"},
			{ImageRegex: `(^|/)(csi-[a-z-]+|livenessprobe)(:|@|$)`},
			{PodName: "kube-apiserver-"},
		},
		ParserRules: []rules.Step{
			bare("strip_timestamps"),
			bare("glog"),
			bare("json"),
			bare("json_block"),
		},
	},
	{
		Name:           "coredns",
		ShowInSelector: false,
		MatchKeys:      []MatchKey{{ImageName: "/coredns/coredns"}, {ImageName: "/coredns:"}},
		ParserRules: []rules.Step{
			bare("strip_timestamps"),
			bare("bracketed_severity"),
		},
	},
	{
		Name:           "ingress_nginx",
		ShowInSelector: true,
		MatchKeys: []MatchKey{
			{ImageName: "/ingress-nginx/controller"},
			{ImageName: "/library/nginx"},
			{ImageRegex: `(^|/)nginx(:|@|$)`},
		},
		ParserRules: []rules.Step{
			bare("glog"),
			bare("http"),
			with("strip_timestamp", map[string]any{"dialect": "golog"}),
			bare("bracketed_severity"),
		},
	},
	{
		Name:      "etcd",
		MatchKeys: []MatchKey{{ImageName: "/etcd:"}, {ImageName: "/coreos/etcd"}},
		ParserRules: []rules.Step{
			bare("json"),
			bare("strip_timestamps"),
			bare("four_letter_severity"),
		},
	},
	{
		Name:           "zap",
		ShowInSelector: true,
		MatchKeys: []MatchKey{
			{ImageName: "/jetstack/cert-manager"},
			{ImageName: "/kyverno/"},
			{ImageName: "/prometheus-operator/"},
		},
		ParserRules: []rules.Step{
			bare("json"),
			bare("zap_console"),
			bare("glog"),
			bare("strip_timestamps"),
		},
	},
	{
		Name:           "logrus",
		ShowInSelector: true,
		MatchKeys: []MatchKey{
			{ImageName: "/argoproj/"},
			{ImageName: "/traefik"},
			{ImageName: "/containous/traefik"},
			{ImageName: "/grafana/loki"},
			{ImageName: "/grafana/promtail"},
		},
		ParserRules: []rules.Step{
			bare("strip_timestamps"),
			bare("key_value"),
			bare("json"),
		},
	},
	{
		Name:           "tensorflow",
		ShowInSelector: true,
		MatchKeys:      []MatchKey{{ImageName: "/tensorflow/"}},
		ParserRules: []rules.Step{
			bare("python_traceback"),
			bare("tensorflow"),
			bare("strip_timestamps"),
			bare("python_logging"),
		},
	},
	{
		Name:           "python",
		ShowInSelector: true,
		MatchKeys:      []MatchKey{{ImageRegex: `(^|/)python:`}, {ImageName: "/apache/airflow"}},
		ParserRules: []rules.Step{
			bare("strip_timestamps"),
			bare("python_traceback"),
			bare("python_logging"),
			bare("bracketed_severity"),
			bare("colon_severity"),
			bare("json"),
		},
	},
	{
		Name:           "rust",
		ShowInSelector: true,
		MatchKeys:      []MatchKey{{ImageName: "/linkerd/proxy"}, {ImageName: "/timberio/vector"}},
		ParserRules: []rules.Step{
			bare("env_logger"),
			bare("strip_timestamps"),
			bare("four_letter_severity"),
			bare("json"),
		},
	},
	{
		Name:      "nvidia_driver",
		MatchKeys: []MatchKey{{ImageName: "/nvidia/driver"}, {ImageName: "/nvidia/k8s-device-plugin"}},
		ParserRules: []rules.Step{
			bare("strip_timestamps"),
			bare("glog"),
			bare("directory"),
			bare("modinfo"),
			bare("colon_severity"),
		},
	},
	{
		Name:      "init_container",
		MatchKeys: []MatchKey{{ContainerType: "init"}},
		ParserRules: []rules.Step{
			bare("strip_timestamps"),
			bare("directory"),
			bare("diff"),
			bare("colon_severity"),
			bare("bracketed_severity"),
		},
	},

	// Selector only parsers, for manual re-parse.
	{Name: "json", ShowInSelector: true, ParserRules: []rules.Step{bare("json"), bare("json_block")}},
	{Name: "key_value", ShowInSelector: true, ParserRules: []rules.Step{bare("strip_timestamps"), bare("key_value")}},
	{Name: "glog", ShowInSelector: true, ParserRules: []rules.Step{bare("strip_timestamps"), bare("glog")}},
	{Name: "http", ShowInSelector: true, ParserRules: []rules.Step{bare("http")}},
	{Name: "directory", ShowInSelector: true, ParserRules: []rules.Step{bare("directory")}},
	{Name: "diff", ShowInSelector: true, ParserRules: []rules.Step{bare("diff")}},
	{Name: "yaml", ShowInSelector: true, ParserRules: []rules.Step{
		bare("strip_timestamps"),
		with("yaml_block", map[string]any{"start": `(?i)(manifest|values|config(uration)?|yaml)\s*:?\s*$`}),
	}},
}

var library = func() []*Parser {
	out := make([]*Parser, 0, len(libraryDefinitions))
	for _, def := range libraryDefinitions {
		out = append(out, MustCompile(def))
	}
	return out
}()

// fallback strips whatever timestamps it recognizes and keeps the rest of
// the line as the message, at Info.
var fallback = MustCompile(Definition{
	Name:           FallbackName,
	ShowInSelector: true,
	MatchKeys:      []MatchKey{{}},
	ParserRules:    []rules.Step{bare("strip_timestamps")},
})

// Library returns the definitions of the built-in parsers in selection
// order, fallback excluded.
func Library() []Definition {
	out := make([]Definition, len(libraryDefinitions))
	copy(out, libraryDefinitions)
	return out
}
