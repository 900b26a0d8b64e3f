package payment

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	DemoGatewayName   = "demo"
	demoPrefix        = "demo-payment-"
	demoSuffixLength  = 6
	demoSuffixCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

type demoGateway struct {
	siteURL string
}

// NewDemoGateway returns a gateway that validates the payload and fabricates
// "demo-payment-xxxxxx" preference ids without calling out.
func NewDemoGateway(siteURL string) Gateway {
	return &demoGateway{siteURL: strings.TrimRight(strings.TrimSpace(siteURL), "/")}
}

func (g *demoGateway) Name() string {
	return DemoGatewayName
}

func (g *demoGateway) CreatePreference(ctx context.Context, req PreferenceRequest, bearerToken string) (Preference, error) {
	if err := ctx.Err(); err != nil {
		return Preference{}, err
	}
	if len(req.Items) == 0 {
		return Preference{}, errors.New("invalid cart items")
	}
	if strings.TrimSpace(bearerToken) == "" {
		return Preference{}, errors.New("unauthorized: no authorization token")
	}
	suffix, err := randomSuffix()
	if err != nil {
		return Preference{}, err
	}
	id := demoPrefix + suffix
	pref := Preference{ID: id}
	if g.siteURL != "" {
		pref.RedirectURL = g.siteURL + "/checkout/success?preference_id=" + id
	}
	return pref, nil
}

func randomSuffix() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(demoSuffixCharset)))
	for i := 0; i < demoSuffixLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(demoSuffixCharset[n.Int64()])
	}
	return b.String(), nil
}
