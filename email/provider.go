package email

import (
	"sort"
	"strings"
)

// Provider labels used in the table below.
const (
	ProviderGmail    = "Gmail"
	ProviderOutlook  = "Outlook"
	ProviderYahoo    = "Yahoo"
	ProviderICloud   = "iCloud"
	ProviderProton   = "Proton Mail"
	ProviderAOL      = "AOL"
	ProviderZoho     = "Zoho Mail"
	ProviderYandex   = "Yandex"
	ProviderMailRu   = "Mail.ru"
	ProviderGMX      = "GMX"
	ProviderWebDE    = "WEB.DE"
	ProviderMailCom  = "Mail.com"
	ProviderQQ       = "QQ Mail"
	ProviderNetEase  = "NetEase"
	ProviderTuta     = "Tuta"
	ProviderFastmail = "Fastmail"
	ProviderHey      = "HEY"
	ProviderNaver    = "Naver"
	ProviderComcast  = "Xfinity"
	ProviderOrange   = "Orange"
	ProviderLibero   = "Libero"
	ProviderSeznam   = "Seznam"
	ProviderRediff   = "Rediffmail"
	ProviderInteria  = "Interia"
)

// providers maps a lowercase registrable domain to its provider label.
// Matching is exact: regional variants not listed here do not match.
var providers = map[string]string{
	"gmail.com":      ProviderGmail,
	"googlemail.com": ProviderGmail,

	"outlook.com":   ProviderOutlook,
	"outlook.fr":    ProviderOutlook,
	"outlook.de":    ProviderOutlook,
	"outlook.es":    ProviderOutlook,
	"outlook.it":    ProviderOutlook,
	"outlook.jp":    ProviderOutlook,
	"outlook.co.uk": ProviderOutlook,
	"hotmail.com":   ProviderOutlook,
	"hotmail.co.uk": ProviderOutlook,
	"hotmail.fr":    ProviderOutlook,
	"hotmail.de":    ProviderOutlook,
	"hotmail.it":    ProviderOutlook,
	"hotmail.es":    ProviderOutlook,
	"live.com":      ProviderOutlook,
	"live.co.uk":    ProviderOutlook,
	"live.fr":       ProviderOutlook,
	"msn.com":       ProviderOutlook,

	"yahoo.com":      ProviderYahoo,
	"yahoo.co.uk":    ProviderYahoo,
	"yahoo.fr":       ProviderYahoo,
	"yahoo.de":       ProviderYahoo,
	"yahoo.es":       ProviderYahoo,
	"yahoo.it":       ProviderYahoo,
	"yahoo.ca":       ProviderYahoo,
	"yahoo.co.jp":    ProviderYahoo,
	"yahoo.com.au":   ProviderYahoo,
	"yahoo.in":       ProviderYahoo,
	"ymail.com":      ProviderYahoo,
	"rocketmail.com": ProviderYahoo,

	"icloud.com": ProviderICloud,
	"me.com":     ProviderICloud,
	"mac.com":    ProviderICloud,

	"protonmail.com": ProviderProton,
	"protonmail.ch":  ProviderProton,
	"proton.me":      ProviderProton,
	"pm.me":          ProviderProton,

	"aol.com": ProviderAOL,

	"zoho.com":     ProviderZoho,
	"zohomail.com": ProviderZoho,

	"yandex.com": ProviderYandex,
	"yandex.ru":  ProviderYandex,

	"mail.ru": ProviderMailRu,

	"gmx.com": ProviderGMX,
	"gmx.de":  ProviderGMX,
	"gmx.net": ProviderGMX,

	"web.de": ProviderWebDE,

	"mail.com": ProviderMailCom,

	"qq.com": ProviderQQ,

	"163.com": ProviderNetEase,
	"126.com": ProviderNetEase,

	"tutanota.com": ProviderTuta,
	"tuta.io":      ProviderTuta,

	"fastmail.com": ProviderFastmail,

	"hey.com": ProviderHey,

	"naver.com": ProviderNaver,

	"comcast.net": ProviderComcast,

	"orange.fr": ProviderOrange,

	"libero.it": ProviderLibero,

	"seznam.cz": ProviderSeznam,

	"rediffmail.com": ProviderRediff,

	"interia.pl": ProviderInteria,
}

// ProviderEntry is one row of the provider table.
type ProviderEntry struct {
	Domain string `json:"domain"`
	Name   string `json:"name"`
}

// ProviderForDomain looks up the provider for a bare domain such as
// "gmail.com". The comparison is case-insensitive and exact.
func ProviderForDomain(domain string) (string, bool) {
	name, ok := providers[strings.ToLower(domain)]
	return name, ok
}

// Provider returns the provider name for a full address. It reports
// false when addr is invalid or its domain is not in the table.
func Provider(addr string) (string, bool) {
	domain, ok := Domain(addr)
	if !ok {
		return "", false
	}
	return ProviderForDomain(domain)
}

// IsPersonalProvider reports whether addr is hosted by a known consumer
// provider. It is exactly "Provider found a match".
func IsPersonalProvider(addr string) bool {
	_, ok := Provider(addr)
	return ok
}

// Providers returns a copy of the provider table sorted by domain.
func Providers() []ProviderEntry {
	out := make([]ProviderEntry, 0, len(providers))
	for d, name := range providers {
		out = append(out, ProviderEntry{Domain: d, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	return out
}
