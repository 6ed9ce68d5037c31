package msrpc

// MSRPCUUID identifies an RPC interface or transfer syntax: the UUID in
// its registry string form plus the version pair, and the named pipe the
// interface is reachable on when it has one.
type MSRPCUUID struct {
	UUID         string
	Version      int
	VersionMinor int
	NamedPipe    string
}
