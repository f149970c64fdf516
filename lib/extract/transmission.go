package extract

import "strings"

type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
	TransmissionUnknown   Transmission = "unknown"
)

// automatic indicators checked first: listings love phrases like
// "PDK gearbox (no manual offered)" that mention both classes
var automaticKeywords = []string{
	"dual-clutch",
	"dual clutch",
	"pdk",
	"dct",
	"sequential",
	"tiptronic",
	"automatic",
	"automated",
}

var manualKeywords = []string{
	"manual",
	"5-speed",
	"6-speed",
	"four-speed",
	"five-speed",
	"six-speed",
	"stick shift",
}

func DetectTransmission(text string) Transmission {
	lower := strings.ToLower(text)
	for _, kw := range automaticKeywords {
		if strings.Contains(lower, kw) {
			return TransmissionAutomatic
		}
	}
	for _, kw := range manualKeywords {
		if strings.Contains(lower, kw) {
			return TransmissionManual
		}
	}
	return TransmissionUnknown
}
