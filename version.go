package pubflow

// Version is the pubflow release, set at build time with
// -ldflags "-X github.com/aretw0/pubflow.Version=v1.2.3".
var Version = "0.1.0-dev"
