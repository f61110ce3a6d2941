package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/amrabdelsalam/madrasti/internal/mailer"
	"github.com/amrabdelsalam/madrasti/internal/payments"
	"github.com/amrabdelsalam/madrasti/internal/paytabs"
)

func PayTabsMiddleware(client *paytabs.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("paytabs_client", client)
		c.Next()
	}
}

func GetPayTabsClient(c *gin.Context) *paytabs.Client {
	client, exists := c.Get("paytabs_client")
	if !exists {
		return nil
	}
	return client.(*paytabs.Client)
}

func PaymentServiceMiddleware(svc *payments.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("payments_service", svc)
		c.Next()
	}
}

func GetPaymentService(c *gin.Context) *payments.Service {
	svc, exists := c.Get("payments_service")
	if !exists {
		return nil
	}
	return svc.(*payments.Service)
}

func MailerMiddleware(m mailer.Mailer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("mailer", m)
		c.Next()
	}
}

func GetMailer(c *gin.Context) mailer.Mailer {
	m, exists := c.Get("mailer")
	if !exists {
		return nil
	}
	return m.(mailer.Mailer)
}
