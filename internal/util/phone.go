package util

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// NormalizePhone strips the gateway suffix and any non-digit characters from a
// counterpart address, e.g. "905551112233@s.whatsapp.net" -> "905551112233".
// Device and agent parts of a JID are dropped. JIDs outside the user server
// (groups, broadcasts, newsletters, hidden ids) yield "".
func NormalizePhone(address string) string {
	address = strings.TrimSpace(address)
	if strings.Contains(address, "@") {
		jid, err := types.ParseJID(address)
		if err != nil || (jid.Server != types.DefaultUserServer && jid.Server != types.LegacyUserServer) {
			return ""
		}
		return digitsOnly(jid.User)
	}
	return digitsOnly(address)
}

// ToUserJID formats a phone number as the gateway's user address.
func ToUserJID(phone string) string {
	return types.NewJID(NormalizePhone(phone), types.DefaultUserServer).String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
