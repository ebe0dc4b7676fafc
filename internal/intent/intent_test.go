package intent

import "testing"

const merchant = "0xABCDEF0123456789ABCDEF0123456789ABCDEF01"

func mustFind(t *testing.T, raw string) (recipient, amount, name, format string) {
	t.Helper()
	res := Parse(raw)
	in, ok := res.Intent()
	if !ok {
		t.Fatalf("expected intent for %q", raw)
	}
	return in.Recipient, in.Amount, in.Name, in.Format
}

func TestParseBareAddressIsChecksummed(t *testing.T) {
	recipient, amount, _, format := mustFind(t, merchant)
	if recipient != "0xabCDeF0123456789AbcdEf0123456789aBCDEF01" {
		t.Fatalf("checksum mismatch: %s", recipient)
	}
	if amount != "" || format != FormatAddress {
		t.Fatalf("unexpected amount/format: %q %q", amount, format)
	}
}

func TestParseJSON(t *testing.T) {
	recipient, amount, name, format := mustFind(t, `{"wallet":"`+merchant+`","amount":12.5,"name":"Cafe"}`)
	if recipient == "" || amount != "12.5" || name != "Cafe" || format != FormatJSON {
		t.Fatalf("json mismatch: %s %s %s %s", recipient, amount, name, format)
	}
	_, amount, _, _ = mustFind(t, `{"wallet":"`+merchant+`","amount":"7"}`)
	if amount != "7" {
		t.Fatalf("string amount mismatch: %s", amount)
	}
	if Parse(`{"wallet":"nope"}`).Found() {
		t.Fatalf("invalid wallet must not parse")
	}
}

func TestParseCustomSchemeAndDeepLink(t *testing.T) {
	_, amount, name, format := mustFind(t, "swappay://pay?wallet="+merchant+"&amount=3.25&name=Kiosk")
	if amount != "3.25" || name != "Kiosk" || format != FormatScheme {
		t.Fatalf("scheme mismatch: %s %s %s", amount, name, format)
	}

	_, amount, _, format = mustFind(t, "https://pay.example.com/pay?to="+merchant+"&amount=10")
	if amount != "10" || format != FormatDeepLink {
		t.Fatalf("deep link mismatch: %s %s", amount, format)
	}

	recipient, _, _, _ := mustFind(t, "https://pay.example.com/m/"+merchant)
	if recipient == "" {
		t.Fatalf("path address not found")
	}
}

func TestParseEIP681(t *testing.T) {
	usdc := "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	res := Parse("ethereum:" + usdc + "@8453/transfer?address=" + merchant + "&uint256=10000000")
	in, ok := res.Intent()
	if !ok {
		t.Fatalf("expected transfer intent")
	}
	if in.Token != usdc || in.ChainID != 8453 || in.Amount != "10" || in.Format != FormatEIP681 {
		t.Fatalf("transfer mismatch: %+v", in)
	}
	if in.Recipient != "0xabCDeF0123456789AbcdEf0123456789aBCDEF01" {
		t.Fatalf("recipient mismatch: %s", in.Recipient)
	}

	res = Parse("ethereum:" + merchant + "@8453?value=2.5e16")
	in, ok = res.Intent()
	if !ok || in.Amount != "0.025" || in.Token != "" || !in.Native {
		t.Fatalf("value transfer mismatch: %+v", in)
	}

	in, ok = Parse("ethereum:" + merchant + "@8453").Intent()
	if !ok || in.Native || in.Amount != "" {
		t.Fatalf("plain address link mismatch: %+v", in)
	}
}

func TestParseNotFound(t *testing.T) {
	for _, raw := range []string{
		"",
		"hello world",
		"0x1234",
		"0x0000000000000000000000000000000000000000",
		"ethereum:notanaddress",
		"ethereum:" + merchant + "@base",
		"swappay://pay?amount=1",
		"{broken json",
		"https://example.com/",
	} {
		if Parse(raw).Found() {
			t.Fatalf("expected NotFound for %q", raw)
		}
	}
}
