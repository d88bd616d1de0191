package stream_test

import (
	"encoding/json"
	"regexp"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/relloyd/deskpipe/stream"
)

var _ = Describe("SanitiseColumnName", func() {
	valid := regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	It("replaces unsupported characters and prefixes leading digits", func() {
		Expect(stream.SanitiseColumnName("status.name")).To(Equal("status_name"))
		Expect(stream.SanitiseColumnName("Região do cliente")).To(Equal("Regi_o_do_cliente"))
		Expect(stream.SanitiseColumnName("1st-contact")).To(Equal("_1st_contact"))
	})

	It("truncates to 300 characters", func() {
		Expect(stream.SanitiseColumnName(strings.Repeat("a", 400))).To(HaveLen(300))
		Expect(stream.SanitiseColumnName("9" + strings.Repeat("a", 400))).To(HaveLen(300))
	})

	It("is idempotent and always produces a valid identifier", func() {
		for _, in := range []string{"cf.x-y", "9abc", "ção", "a b\tc", "__ok__", "évt:ticket/ticketNumber"} {
			once := stream.SanitiseColumnName(in)
			Expect(once).To(MatchRegexp(valid.String()))
			Expect(stream.SanitiseColumnName(once)).To(Equal(once))
		}
	})
})

var _ = Describe("Flatten", func() {
	It("joins nested map paths with the separator and keeps slices", func() {
		r := stream.Flatten(map[string]interface{}{
			"number": json.Number("101"),
			"status": map[string]interface{}{"name": "Aberto"},
			"lastHumanInteraction": map[string]interface{}{
				"propertiesChanges": map[string]interface{}{"status": "Pendente"},
			},
			"tags": []interface{}{"a", "b"},
		}, ".")
		Expect(r.GetDataMap()).To(Equal(map[string]interface{}{
			"number":      json.Number("101"),
			"status.name": "Aberto",
			"lastHumanInteraction.propertiesChanges.status": "Pendente",
			"tags": []interface{}{"a", "b"},
		}))
	})
})

var _ = Describe("FlattenCustomFields", func() {
	fields := []interface{}{
		map[string]interface{}{"key": "cpf", "value": "123"},
		map[string]interface{}{"name": "produto", "value": "X"},
		map[string]interface{}{"key": "other", "value": 1},
		"not a map",
		map[string]interface{}{"value": "no key"},
	}

	It("uses key or name and prefixes every column", func() {
		r := stream.FlattenCustomFields("chat_cf_", fields, nil)
		Expect(r.GetSortedDataMapKeys()).To(Equal([]string{"chat_cf_cpf", "chat_cf_other", "chat_cf_produto"}))
		Expect(r.GetData("chat_cf_produto")).To(Equal("X"))
	})

	It("drops keys outside the allow list", func() {
		allow := map[string]struct{}{"cpf": {}, "produto": {}}
		r := stream.FlattenCustomFields("ticket_", fields, allow)
		Expect(r.GetSortedDataMapKeys()).To(Equal([]string{"ticket_cpf", "ticket_produto"}))
	})

	It("returns an empty record for a non-list value", func() {
		Expect(stream.FlattenCustomFields("x_", nil, nil).GetDataLen()).To(Equal(0))
	})
})

var _ = Describe("FlattenEvents", func() {
	It("produces a flag per type plus payload fields, first event per type wins", func() {
		r := stream.FlattenEvents([]interface{}{
			map[string]interface{}{"type": "ticket", "data": map[string]interface{}{"ticketNumber": json.Number("501")}},
			map[string]interface{}{"type": "ticket", "data": map[string]interface{}{"ticketNumber": json.Number("999")}},
			map[string]interface{}{"type": "satisfaction", "data": "5"},
			map[string]interface{}{"type": "closed"},
		})
		Expect(r.GetDataMap()).To(Equal(map[string]interface{}{
			"evt_ticket":              true,
			"evt_ticket_ticketNumber": json.Number("501"),
			"evt_satisfaction":        true,
			"evt_satisfaction_raw":    "5",
			"evt_closed":              true,
		}))
	})
})

var _ = Describe("JoinKey", func() {
	It("treats integers, integral floats and numeric strings as the same key", func() {
		for _, v := range []interface{}{101, int64(101), 101.0, json.Number("101"), "101", " 101 ", json.Number("101.0")} {
			k, ok := stream.JoinKey(v)
			Expect(ok).To(BeTrue())
			Expect(k).To(Equal("101"))
		}
	})

	It("never produces a key for null or empty values", func() {
		for _, v := range []interface{}{nil, "", "  "} {
			_, ok := stream.JoinKey(v)
			Expect(ok).To(BeFalse())
		}
	})

	It("renders large integers without exponent", func() {
		k, _ := stream.JoinKey(float64(12345678901))
		Expect(k).To(Equal("12345678901"))
	})
})

var _ = Describe("NormaliseValue and CoerceInt", func() {
	It("converts json numbers", func() {
		Expect(stream.NormaliseValue(json.Number("7"))).To(Equal(int64(7)))
		Expect(stream.NormaliseValue(json.Number("7.5"))).To(Equal(7.5))
		Expect(stream.NormaliseValue("x")).To(Equal("x"))
	})

	It("coerces integers and falls back to the raw value", func() {
		Expect(stream.CoerceInt(json.Number("501"))).To(Equal(int64(501)))
		Expect(stream.CoerceInt("501")).To(Equal(int64(501)))
		Expect(stream.CoerceInt("TK-501")).To(Equal("TK-501"))
	})
})

var _ = Describe("FlattenNamedCustomFields", func() {
	It("prefers name over key", func() {
		r := stream.FlattenNamedCustomFields("cf_chat_", []interface{}{
			map[string]interface{}{"key": "k1", "name": "Região", "value": "Sul"},
			map[string]interface{}{"key": "k2", "value": 2},
		})
		Expect(r.GetDataMap()).To(Equal(map[string]interface{}{"cf_chat_Regi_o": "Sul", "cf_chat_k2": 2}))
	})
})
