package msrpc

func roundup(x, align int) int {
	return (x + (align - 1)) &^ (align - 1)
}
