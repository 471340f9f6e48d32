package chatstream

// Version is overridden at build time with -ldflags "-X github.com/a-h/chatstream.Version=...".
var Version = "dev"
