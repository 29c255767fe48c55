package router

import (
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/handler"
)

// Handlers groups the handlers served by the gateway
type Handlers struct {
	Contact  *handler.ContactHandler
	Casework *handler.CaseworkHandler
	System   *handler.SystemHandler
}

// RegisterGateway registers the CRM endpoints plus health and system info
func (r *Router) RegisterGateway(h Handlers) *Router {
	contactRoutes := NewDomainGroup("contact", "/contact")
	contactRoutes.POST("/find", h.Contact.Find)
	contactRoutes.POST("/create", h.Contact.Create)
	verifyRoutes := contactRoutes.Group("verify", "/verify")
	verifyRoutes.POST("/dob", h.Contact.VerifyDOB)
	verifyRoutes.POST("/dob-phone", h.Contact.VerifyDOBPhone)

	customerServiceRoutes := NewDomainGroup("customer_service", "/customer_service")
	customerServiceRoutes.POST("/create", h.Casework.CreateCustomerService)

	scriptCaseRoutes := NewDomainGroup("script_case", "/script_case")
	scriptCaseRoutes.POST("", h.Casework.CreateScriptCase)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	healthRoutes := NewDomainGroup("health", "/health")
	healthRoutes.GET("", h.System.Health)

	return r.Register(contactRoutes).
		Register(customerServiceRoutes).
		Register(scriptCaseRoutes).
		Register(systemRoutes).
		Register(healthRoutes)
}
