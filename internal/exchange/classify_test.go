package exchange

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"Invalid API-key, IP, or permissions for action.", KindPermission},
		{"API-key format invalid.", KindPermission},
		{"Signature for this request is not valid.", KindPermission},
		{"HTTP 401 Unauthorized", KindPermission},
		{"Too many requests; current limit is 1200 request weight per 1 MINUTE.", KindRateLimited},
		{"Way too much request weight used", KindRateLimited},
		{`{"code":-1003,"msg":"slow down"}`, KindRateLimited},
		{"upstream returned 429", KindRateLimited},
		{"Account has insufficient balance for requested action.", KindGeneric},
		{"", KindGeneric},
	}
	for _, tc := range cases {
		if got := Classify(tc.msg); got != tc.want {
			t.Fatalf("Classify(%q)=%s want=%s", tc.msg, got, tc.want)
		}
	}
}
