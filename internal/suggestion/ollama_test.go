package suggestion

import (
	"context"
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server    *ghttp.Server
		ollama    *Ollama
		result    *Suggestion
		err       error
		replyBody string
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		ollama, err = NewOllama(server.URL(), "llama3.1")
		Expect(err).NotTo(HaveOccurred())
		replyBody = `{"inclusions": "Aéreos y hotel", "details": ["Traslado al aeropuerto", "Desayuno incluido"]}`
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		result, err = ollama.Suggest(context.Background(), "Viaje a Bariloche", "Julio")
	})

	When("the model answers with valid JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
					Expect(req.Model).To(Equal("llama3.1"))
					Expect(req.Format).To(Equal("json"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Content).To(ContainSubstring("Viaje a Bariloche"))
					Expect(req.Messages[1].Content).To(ContainSubstring("Julio"))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: replyBody},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the suggestion", func() {
			Expect(result).To(Equal(&Suggestion{
				Inclusions: "Aéreos y hotel",
				Details:    []string{"Traslado al aeropuerto", "Desayuno incluido"},
			}))
		})

		It("should issue exactly one request", func() {
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the model answers with the wrong shape", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Role: "assistant", Content: `{"inclusions": "Hotel", "details": "uno"}`},
				Done:    true,
			}))
		})

		It("returns a malformed suggestion error", func() {
			Expect(err).To(MatchError(ErrMalformedSuggestion))
			Expect(result).To(BeNil())
		})
	})

	When("the API returns an error status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not found"))
		})

		It("returns the error without retrying", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(server.ReceivedRequests()).To(HaveLen(1))
		})
	})

	When("the API returns a non JSON body", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "not json"))
		})

		It("returns a decoding error", func() {
			Expect(err).To(MatchError(ContainSubstring("decoding response")))
		})
	})
})

var _ = Describe("NewOllama", func() {
	It("falls back to the local defaults", func() {
		o, err := NewOllama("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(o.baseURL).To(Equal("http://localhost:11434"))
		Expect(o.model).To(Equal("llama3.1"))
	})

	It("waits no longer than the shared timeout", func() {
		o, err := NewOllama("http://localhost:11434", "llama3.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(o.client.Timeout).To(Equal(OllamaTimeout))
		Expect(o.client.Timeout).To(BeNumerically("<=", MaxTimeout))
	})
})
