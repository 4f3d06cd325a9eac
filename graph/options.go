package graph

type nodeConfig struct {
	friendlyName   string
	placement      string
	controlDeps    []*Node
	provenanceTags []string
	annotations    *Annotations
}

// NodeOption configures a node created with NewNode.
type NodeOption func(cfg *nodeConfig)

// WithFriendlyName sets the user-facing name of the node.
func WithFriendlyName(name string) NodeOption {
	return func(cfg *nodeConfig) { cfg.friendlyName = name }
}

// WithPlacement sets the placement (e.g.: a device name) of the node.
func WithPlacement(placement string) NodeOption {
	return func(cfg *nodeConfig) { cfg.placement = placement }
}

// WithControlDeps adds control dependencies to the node: it will be ordered after the given nodes.
func WithControlDeps(deps ...*Node) NodeOption {
	return func(cfg *nodeConfig) { cfg.controlDeps = append(cfg.controlDeps, deps...) }
}

// WithProvenanceTags adds provenance tags to the node.
func WithProvenanceTags(tags ...string) NodeOption {
	return func(cfg *nodeConfig) { cfg.provenanceTags = append(cfg.provenanceTags, tags...) }
}

// WithAnnotations sets the back-end annotations of the node.
func WithAnnotations(annotations Annotations) NodeOption {
	return func(cfg *nodeConfig) { cfg.annotations = &annotations }
}
