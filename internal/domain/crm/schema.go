package crm

// Picklist is the allow-list for one field.
type Picklist struct {
	Field   string
	Allowed []string
}

// Schema describes what a record must carry before it is sent to the platform.
type Schema struct {
	Required []string
	// Picklists are checked in order; fields without an entry are unchecked.
	Picklists []Picklist
}

// Validate checks required fields first, then picklist membership.
// A required field counts as present when its key exists, whatever the value.
// Picklist membership is exact and case-sensitive, and only string values
// can match.
func (s Schema) Validate(record Record) error {
	var missing []string
	for _, field := range s.Required {
		if !record.Has(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	for _, pl := range s.Picklists {
		value := record[pl.Field]
		str, ok := value.(string)
		if !ok || !contains(pl.Allowed, str) {
			return &InvalidValueError{
				Field:    pl.Field,
				Provided: value,
				Allowed:  pl.Allowed,
			}
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// CustomerServiceSchema validates Customer_Service__c payloads.
var CustomerServiceSchema = Schema{
	Required: []string{
		"AccountId",
		"CallType__c",
		"ParentezcoDelCliente__c",
		"Fast_Note__c",
		"UltimoAnioDeAyuda__c",
		"Communication_channel__c",
		"TipoCliente__c",
		"TipoHumor_Cliente__c",
	},
	Picklists: []Picklist{
		{Field: "CallType__c", Allowed: []string{"Inbone", "Onbone"}},
		{Field: "ParentezcoDelCliente__c", Allowed: []string{
			"Cliente", "Familiar del Cliente", "Amigo del Cliente",
			"Agencia de Gobierno", "Un tercero", "eje realtor...",
		}},
		{Field: "UltimoAnioDeAyuda__c", Allowed: []string{
			"2024", "2023", "2022", "2021", "2020", "2019", "2018", "2017 o antes",
		}},
		{Field: "Communication_channel__c", Allowed: []string{"Text message", "Phone", "In person"}},
		{Field: "TipoCliente__c", Allowed: []string{"Cliente Actual", "Cliente Retorno", "Cliente Nuevo"}},
		{Field: "TipoHumor_Cliente__c", Allowed: []string{
			"Enojado", "Frustrado", "Desesperado", "Calmado", "Feliz", "Apático",
			"Celoso", "Nublado", "Preocupado", "Ansioso", "Agradecido", "Indeciso",
			"Aliviado", "Preparado", "Impaciente", "Inseguro", "Interesado",
			"Resuelto", "Curioso", "Avergonzado", "Resentido", "Resignado",
			"Optimista", "Motivado",
		}},
	},
}
