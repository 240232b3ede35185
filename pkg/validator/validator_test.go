package validator

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

type submissionPayload struct {
	CropType string  `json:"cropType" validate:"notblank"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	Email    string  `json:"email" validate:"required,email"`
	Unit     string  `json:"unit" validate:"oneof=kg tons"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := submissionPayload{CropType: "Wheat", Quantity: 500, Email: "farmer@example.com", Unit: "kg"}
	require.NoError(t, ValidateStruct(payload))
}

func TestValidateStructFailures(t *testing.T) {
	err := ValidateStruct(submissionPayload{CropType: "   ", Quantity: 0, Email: "invalid", Unit: "bushels"})
	require.Error(t, err)

	var vErrs ValidationErrors
	require.True(t, errors.As(err, &vErrs))
	require.Len(t, vErrs, 4)

	fields := make([]string, 0, len(vErrs))
	for _, v := range vErrs {
		fields = append(fields, v.Field)
	}
	require.ElementsMatch(t, []string{"cropType", "quantity", "email", "unit"}, fields)
}

func TestDescribeFormatsMessages(t *testing.T) {
	err := ValidateStruct(submissionPayload{CropType: "", Quantity: 1, Email: "farmer@example.com", Unit: "kg"})
	require.Equal(t, "crop type is required", Describe(err))

	err = ValidateStruct(submissionPayload{CropType: "Rice", Quantity: -1, Email: "farmer@example.com", Unit: "kg"})
	require.Equal(t, "quantity must be greater than 0", Describe(err))

	require.Equal(t, "invalid request payload", Describe(errors.New("other")))
}

func TestRegisterValidation(t *testing.T) {
	require.NoError(t, RegisterValidation("season", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "kharif"
	}))

	type custom struct {
		Value string `validate:"season"`
	}

	require.NoError(t, ValidateStruct(custom{Value: "kharif"}))
	require.Error(t, ValidateStruct(custom{Value: "rabi"}))
}
