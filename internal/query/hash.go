package query

import "encoding/base64"

// UserGroupHash derives the opaque customer group token shared by queries
// and the export feed: the bytes of shopkey XOR groupKey over the shorter of
// the two, base64 encoded.
func UserGroupHash(shopkey, groupKey string) string {
	n := len(shopkey)
	if len(groupKey) < n {
		n = len(groupKey)
	}
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = shopkey[i] ^ groupKey[i]
	}
	return base64.StdEncoding.EncodeToString(out)
}
