package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Two guards in a row returning the same value can be merged with ||.
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// gatewayErrors keeps every HTTP error on the JSON envelope.
func gatewayErrors(m dsl.Matcher) {
	m.Import("net/http")

	m.Match(`http.Error($w, $msg, $code)`).
		Where(m.File().PkgPath.Matches(`internal/api`)).
		Report(`plain-text http.Error bypasses the JSON error envelope; use apierror.Write`)

	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `log.Printf($*_)`, `log.Println($*_)`).
		Where(m.File().PkgPath.Matches(`internal/`) && !m.File().Name.Matches(`_test\.go$`)).
		Report(`use the injected *zap.Logger instead of printing`)
}

// credentials stops vendor credentials from reaching the logs.
func credentials(m dsl.Matcher) {
	m.Match(`zap.String($key, $v.Credential)`).
		Report(`do not log raw credentials; log the credential fingerprint instead`)

	m.Match(`zap.String($key, $credential)`).
		Where(m["credential"].Text.Matches(`(?i)^(credential|apikey|api_key|token)$`)).
		Report(`do not log raw credentials; log the credential fingerprint instead`)

	m.Match(`$req.Header.Get("Authorization")`).
		Where(!m.File().PkgPath.Matches(`internal/(domain/auth|api/handlers)`)).
		Report(`read credentials through the auth package, not the raw header`)
}
