package handler

import (
	"github.com/gin-gonic/gin"

	appcrm "github.com/CSRAutomation/sofia-salesforce-api/internal/application/crm"
	"github.com/CSRAutomation/sofia-salesforce-api/internal/interfaces/http/dto"
)

// ContactHandler handles contact lookup, creation and verification
type ContactHandler struct {
	BaseHandler
	contactService *appcrm.ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService *appcrm.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Find looks a contact up by full name
// POST /contact/find
func (h *ContactHandler) Find(c *gin.Context) {
	var req dto.FindContactRequest
	if !h.BindJSON(c, &req) {
		return
	}

	contact, err := h.contactService.Find(c.Request.Context(), appcrm.FindContactRequest{FullName: req.FullName})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.ContactResponse{Status: dto.StatusFound, Contact: contact})
}

// Create creates a contact and links it to its Flow-created Account. The
// response is 201 whatever the reconciliation outcome.
// POST /contact/create
func (h *ContactHandler) Create(c *gin.Context) {
	fields, ok := h.BindRecord(c)
	if !ok {
		return
	}

	result, err := h.contactService.Create(c.Request.Context(), appcrm.CreateContactRequest{Fields: fields})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.CreatedContactResponse{
		Status:         dto.StatusCreated,
		Contact:        result.Contact,
		Reconciliation: string(result.Reconciliation.Outcome),
	})
}

// VerifyDOB verifies a contact by name and date of birth
// POST /contact/verify/dob
func (h *ContactHandler) VerifyDOB(c *gin.Context) {
	var req dto.VerifyDOBRequest
	if !h.BindJSON(c, &req) {
		return
	}

	contact, err := h.contactService.VerifyDOB(c.Request.Context(), appcrm.VerifyDOBRequest{
		FullName: req.FullName,
		DOB:      req.DOB,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.ContactResponse{Status: dto.StatusVerified, Contact: contact})
}

// VerifyDOBPhone verifies a contact by name, date of birth and phone
// POST /contact/verify/dob-phone
func (h *ContactHandler) VerifyDOBPhone(c *gin.Context) {
	var req dto.VerifyDOBPhoneRequest
	if !h.BindJSON(c, &req) {
		return
	}

	contact, err := h.contactService.VerifyDOBPhone(c.Request.Context(), appcrm.VerifyDOBPhoneRequest{
		FullName: req.FullName,
		DOB:      req.DOB,
		Phone:    req.Phone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.OK(c, dto.ContactResponse{Status: dto.StatusVerified, Contact: contact})
}
