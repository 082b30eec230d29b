package ccavenue

// Gateway endpoints per server mode. Resolved once at client construction;
// explicit overrides from gateway settings win over the table.

type Mode string

const (
	ModeProduction Mode = "production"
	ModeTest       Mode = "test"
)

type endpoint string

const (
	endpointTransaction endpoint = "transaction"
	endpointAPI         endpoint = "api"
	endpointSignup      endpoint = "signup"
)

var gatewayURLs = map[Mode]map[endpoint]string{
	ModeProduction: {
		endpointTransaction: "https://secure.ccavenue.com/transaction/transaction.do?command=initiateTransaction",
		endpointAPI:         "https://api.ccavenue.com/apis/servlet/DoWebTrans",
		endpointSignup:      "https://login.ccavenue.com/web/registration.do?command=navigateSchemeForm",
	},
	ModeTest: {
		endpointTransaction: "https://test.ccavenue.com/transaction/transaction.do",
		endpointAPI:         "https://180.179.175.17/apis/servlet/DoWebTrans",
		endpointSignup:      "https://180.179.175.17/web/registration.do?command=navigateSchemeForm",
	},
}

func urlFor(mode Mode, ep endpoint, override string) string {
	if override != "" {
		return override
	}
	return gatewayURLs[mode][ep]
}
