package attendance

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-qr-attendance/internal/models"
	appErrors "github.com/noah-isme/sma-qr-attendance/pkg/errors"
)

// payloadFields is the positional layout of the printed student badges:
// "Nome: …", "Série: …", "Curso: …", "Número: …".
const payloadFields = 4

const fieldSeparator = ": "

// jsonAliases maps accepted JSON keys onto the four identity fields.
var jsonAliases = map[string]int{
	"name": 0, "nome": 0,
	"grade": 1, "serie": 1, "série": 1,
	"track": 2, "curso": 2,
	"roll_number": 3, "rollnumber": 3, "numero": 3, "número": 3,
}

// PayloadParser turns decoded QR text into an identity.
type PayloadParser struct {
	acceptJSON bool
	validate   *validator.Validate
}

// NewPayloadParser builds a parser. With acceptJSON a payload starting with
// "{" is read as a JSON object carrying the same four fields.
func NewPayloadParser(acceptJSON bool, validate *validator.Validate) *PayloadParser {
	if validate == nil {
		validate = validator.New()
	}
	return &PayloadParser{acceptJSON: acceptJSON, validate: validate}
}

// Parse returns the identity encoded in raw or a payload error.
func (p *PayloadParser) Parse(raw string) (models.Identity, error) {
	var (
		fields [payloadFields]string
		err    error
	)
	if p.acceptJSON && strings.HasPrefix(strings.TrimSpace(raw), "{") {
		fields, err = parseJSON(raw)
	} else {
		fields, err = parsePositional(raw)
	}
	if err != nil {
		return models.Identity{}, err
	}

	identity := models.Identity{
		Name:       NormalizeName(fields[0]),
		Grade:      strings.TrimSpace(fields[1]),
		Track:      strings.TrimSpace(fields[2]),
		RollNumber: strings.TrimSpace(fields[3]),
	}
	if err := p.validate.Struct(identity); err != nil {
		return models.Identity{}, appErrors.WrapAs(appErrors.ErrPayloadInvalid, err, "qr code carries no student name")
	}
	return identity, nil
}

func parsePositional(raw string) ([payloadFields]string, error) {
	var fields [payloadFields]string
	lines := strings.Split(raw, "\n")
	if len(lines) < payloadFields {
		return fields, appErrors.Clone(appErrors.ErrPayloadInsufficient,
			fmt.Sprintf("insufficient data in qr code, received: %q", raw))
	}
	for i := 0; i < payloadFields; i++ {
		_, value, ok := strings.Cut(lines[i], fieldSeparator)
		if !ok {
			return fields, appErrors.Clone(appErrors.ErrPayloadMalformed,
				fmt.Sprintf("qr code line %d has no %q separator: %q", i+1, fieldSeparator, lines[i]))
		}
		fields[i] = value
	}
	return fields, nil
}

func parseJSON(raw string) ([payloadFields]string, error) {
	var fields [payloadFields]string
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var obj map[string]interface{}
	if err := decoder.Decode(&obj); err != nil {
		return fields, appErrors.WrapAs(appErrors.ErrPayloadInvalid, err, "qr code json payload is not an object")
	}
	for key, value := range obj {
		idx, ok := jsonAliases[strings.ToLower(key)]
		if !ok || value == nil {
			continue
		}
		fields[idx] = fmt.Sprint(value)
	}
	return fields, nil
}
