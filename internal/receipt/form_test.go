package receipt

import (
	"context"
	"errors"
	"net/url"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/orbitravel/receipts/internal/suggestion"
)

var _ = Describe("Fields", func() {
	Describe("ParseFields", func() {
		It("reads every form field", func() {
			values := url.Values{
				"clientName":      {"Ana"},
				"clientEmail":     {"ana@example.com"},
				"clientAddress":   {"Calle 1"},
				"tripDescription": {"Beach trip"},
				"tripMonth":       {"Enero"},
				"paxCount":        {"2"},
				"tripInclusions":  {"Hotel"},
				"totalTripValue":  {"1000"},
				"amountPaid":      {"500"},
				"generalDetails":  {"Nada"},
			}
			Expect(ParseFields(values)).To(Equal(Fields{
				ClientName:      "Ana",
				ClientEmail:     "ana@example.com",
				ClientAddress:   "Calle 1",
				TripDescription: "Beach trip",
				TripMonth:       "Enero",
				PaxCount:        "2",
				TripInclusions:  "Hotel",
				TotalTripValue:  "1000",
				AmountPaid:      "500",
				GeneralDetails:  "Nada",
			}))
		})
	})

	Describe("Draft", func() {
		var (
			fields Fields
			draft  Draft
			err    error
		)

		BeforeEach(func() {
			fields = validFields()
		})

		JustBeforeEach(func() {
			draft, err = fields.Draft()
		})

		When("every field is valid", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should parse the amounts", func() {
				Expect(draft.TotalTripValue.String()).To(Equal("1000"))
				Expect(draft.AmountPaid.String()).To(Equal("500"))
			})
		})

		When("values have surrounding whitespace", func() {
			BeforeEach(func() {
				fields.ClientName = "  Ana Pérez  "
			})

			It("trims them", func() {
				Expect(draft.ClientName).To(Equal("Ana Pérez"))
			})
		})

		When("amounts use a decimal comma or a currency sign", func() {
			BeforeEach(func() {
				fields.TotalTripValue = "$ 1500,50"
				fields.AmountPaid = "250.25"
			})

			It("parses them", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(draft.TotalTripValue.StringFixed(2)).To(Equal("1500.50"))
				Expect(draft.AmountPaid.StringFixed(2)).To(Equal("250.25"))
			})
		})

		When("required fields are missing", func() {
			BeforeEach(func() {
				fields.ClientName = " "
				fields.TripDescription = ""
				fields.TotalTripValue = ""
				fields.AmountPaid = ""
			})

			It("reports each of them", func() {
				var verrs ValidationErrors
				Expect(errors.As(err, &verrs)).To(BeTrue())
				Expect(verrs).To(HaveKeyWithValue("clientName", msgRequired))
				Expect(verrs).To(HaveKeyWithValue("tripDescription", msgRequired))
				Expect(verrs).To(HaveKeyWithValue("totalTripValue", msgRequired))
				Expect(verrs).To(HaveKeyWithValue("amountPaid", msgRequired))
			})

			It("names the fields in the error message", func() {
				Expect(err.Error()).To(Equal("invalid fields: amountPaid, clientName, totalTripValue, tripDescription"))
			})
		})

		When("optional fields are empty", func() {
			BeforeEach(func() {
				fields.ClientEmail = ""
				fields.ClientAddress = ""
				fields.TripMonth = ""
				fields.PaxCount = ""
				fields.GeneralDetails = ""
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})

		When("the email is malformed", func() {
			BeforeEach(func() {
				fields.ClientEmail = "not-an-email"
			})

			It("reports the email", func() {
				Expect(err).To(MatchError(ValidationErrors{"clientEmail": msgInvalidEmail}))
			})
		})

		When("an amount is not a number", func() {
			BeforeEach(func() {
				fields.TotalTripValue = "mil"
			})

			It("reports it as invalid rather than out of range", func() {
				Expect(err).To(MatchError(ValidationErrors{"totalTripValue": msgInvalidAmount}))
			})
		})

		When("the total is zero", func() {
			BeforeEach(func() {
				fields.TotalTripValue = "0"
			})

			It("requires a positive total", func() {
				Expect(err).To(MatchError(ValidationErrors{"totalTripValue": msgAmountPositive}))
			})
		})

		When("the amount paid is negative", func() {
			BeforeEach(func() {
				fields.AmountPaid = "-1"
			})

			It("rejects it", func() {
				Expect(err).To(MatchError(ValidationErrors{"amountPaid": msgAmountNotNegative}))
			})
		})

		When("nothing has been paid yet", func() {
			BeforeEach(func() {
				fields.AmountPaid = "0"
			})

			It("accepts it", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})
})

var _ = Describe("Form", func() {
	var form Form

	BeforeEach(func() {
		form = Form{Fields: validFields()}
	})

	Describe("Submit", func() {
		var (
			received []Draft
			genErr   error
			err      error
		)

		BeforeEach(func() {
			received = nil
			genErr = nil
		})

		JustBeforeEach(func() {
			err = form.Submit(func(d Draft) error {
				received = append(received, d)
				return genErr
			})
		})

		When("the fields are valid", func() {
			It("hands the draft to the generator", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(received).To(HaveLen(1))
				Expect(received[0].ClientName).To(Equal("Ana Pérez"))
			})

			It("clears previous errors", func() {
				Expect(form.Errors).To(BeNil())
			})
		})

		When("the fields are invalid", func() {
			BeforeEach(func() {
				form.Fields.ClientName = ""
				form.Errors = ValidationErrors{"amountPaid": msgRequired}
			})

			It("blocks the submission", func() {
				Expect(err).To(HaveOccurred())
				Expect(received).To(BeEmpty())
			})

			It("records the field errors", func() {
				Expect(form.Errors).To(Equal(ValidationErrors{"clientName": msgRequired}))
			})
		})

		When("the generator refuses the draft", func() {
			BeforeEach(func() {
				genErr = ErrGenerationInProgress
			})

			It("returns its error", func() {
				Expect(err).To(MatchError(ErrGenerationInProgress))
			})
		})
	})

	Describe("Suggest", func() {
		var (
			before   Fields
			calls    int
			reply    *suggestion.Suggestion
			replyErr error
			result   *suggestion.Suggestion
			err      error
		)

		BeforeEach(func() {
			calls = 0
			reply = &suggestion.Suggestion{
				Inclusions: "Flights, hotel",
				Details:    []string{"Airport transfer", "Breakfast included"},
			}
			replyErr = nil
		})

		JustBeforeEach(func() {
			before = form.Fields
			result, err = form.Suggest(context.Background(), func(ctx context.Context, description, month string) (*suggestion.Suggestion, error) {
				calls++
				Expect(description).To(Equal(form.Fields.TripDescription))
				Expect(month).To(Equal(form.Fields.TripMonth))
				return reply, replyErr
			})
		})

		When("the suggestion succeeds", func() {
			It("returns the suggestion", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(reply))
			})

			It("overwrites only inclusions and general details", func() {
				expected := before
				expected.TripInclusions = "Flights, hotel"
				expected.GeneralDetails = "- Airport transfer\n- Breakfast included"
				Expect(form.Fields).To(Equal(expected))
				Expect(form.Fields.TripDescription).To(Equal("Beach trip"))
			})

			It("shows no warning", func() {
				Expect(form.Warning).To(BeEmpty())
			})
		})

		When("the description is empty", func() {
			BeforeEach(func() {
				form.Fields.TripDescription = "   "
			})

			It("does not call the suggestion service", func() {
				Expect(calls).To(BeZero())
				Expect(result).To(BeNil())
				Expect(err).To(MatchError(ErrDescriptionRequired))
			})

			It("warns the user and leaves the fields alone", func() {
				Expect(form.Warning).To(Equal(msgDescriptionMissing))
				Expect(form.Fields).To(Equal(before))
			})
		})

		When("the suggestion service fails", func() {
			BeforeEach(func() {
				replyErr = errors.Join(ErrSuggestionFailed, errors.New("boom"))
			})

			It("returns no suggestion", func() {
				Expect(result).To(BeNil())
				Expect(err).To(MatchError(ErrSuggestionFailed))
			})

			It("warns the user and leaves the fields alone", func() {
				Expect(form.Warning).To(Equal(msgSuggestionFailed))
				Expect(form.Fields).To(Equal(before))
			})
		})

		When("the response was superseded", func() {
			BeforeEach(func() {
				replyErr = ErrStaleSuggestion
			})

			It("leaves the fields alone without a warning", func() {
				Expect(form.Fields).To(Equal(before))
				Expect(form.Warning).To(BeEmpty())
			})
		})

		When("the session is rate limited", func() {
			BeforeEach(func() {
				replyErr = ErrRateLimited
			})

			It("asks the user to wait", func() {
				Expect(form.Warning).To(Equal(msgRateLimited))
			})
		})
	})
})

var _ = Describe("amount parsing", func() {
	DescribeTable("reads amounts as they are printed on receipts",
		func(raw, expected string) {
			fields := validFields()
			fields.TotalTripValue = raw
			draft, err := fields.Draft()
			Expect(err).NotTo(HaveOccurred())
			Expect(draft.TotalTripValue.StringFixed(2)).To(Equal(expected))
		},
		Entry("plain", "1500", "1500.00"),
		Entry("dot-grouped thousands", "1.500", "1500.00"),
		Entry("grouped with decimal comma", "1.500,00", "1500.00"),
		Entry("millions", "1.234.567,89", "1234567.89"),
		Entry("currency sign and space", "$ 1.000", "1000.00"),
		Entry("decimal comma", "1500,5", "1500.50"),
		Entry("decimal dot", "1500.50", "1500.50"),
		Entry("short decimal dot", "1.5", "1.50"),
	)

	DescribeTable("rejects ambiguous amounts",
		func(raw string) {
			fields := validFields()
			fields.TotalTripValue = raw
			_, err := fields.Draft()
			Expect(err).To(MatchError(ValidationErrors{"totalTripValue": msgInvalidAmount}))
		},
		Entry("comma-grouped", "1,500.00"),
		Entry("broken grouping", "1.50.0"),
		Entry("uneven group", "1.5000"),
		Entry("two commas", "1,5,0"),
		Entry("three decimals after a comma", "1500,505"),
	)
})
