package handler

import (
	"github.com/gin-gonic/gin"

	appcrm "github.com/CSRAutomation/sofia-salesforce-api/internal/application/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/dto"
)

// CaseworkHandler handles customer service and script case creation
type CaseworkHandler struct {
	BaseHandler
	caseService *appcrm.CaseService
}

// NewCaseworkHandler creates a new CaseworkHandler
func NewCaseworkHandler(caseService *appcrm.CaseService) *CaseworkHandler {
	return &CaseworkHandler{caseService: caseService}
}

// CreateCustomerService creates a Customer_Service__c record
// POST /customer_service/create
func (h *CaseworkHandler) CreateCustomerService(c *gin.Context) {
	fields, ok := h.BindRecord(c)
	if !ok {
		return
	}

	record, err := h.caseService.CreateCustomerService(c.Request.Context(), appcrm.CreateCustomerServiceRequest{Fields: fields})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.CustomerServiceResponse{Status: dto.StatusCreated, CustomerService: record})
}

// CreateScriptCase creates a Script_Case__c record
// POST /script_case
func (h *CaseworkHandler) CreateScriptCase(c *gin.Context) {
	fields, ok := h.BindRecord(c)
	if !ok {
		return
	}

	record, err := h.caseService.CreateScriptCase(c.Request.Context(), appcrm.CreateScriptCaseRequest{Fields: fields})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.CaseResponse{Status: dto.StatusCreated, Case: record})
}
