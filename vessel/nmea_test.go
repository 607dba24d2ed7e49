package vessel

import (
	"strings"
	"testing"
	"time"
)

func createTestUpdate() Update {
	return Update{
		Step:           3,
		Position:       Coordinate{Lat: 22.1696, Lng: 91.4996},
		HeadingDegrees: 0,
		CourseDegrees:  90,
		SpeedKmH:       18.52,
		Timestamp:      time.Date(2024, 3, 5, 12, 34, 56, 780000000, time.UTC),
	}
}

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		expected string
	}{
		{
			name:     "Simple GGA sentence",
			sentence: "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
			expected: "47",
		},
		{
			name:     "Simple RMC sentence",
			sentence: "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W",
			expected: "6A",
		},
		{
			name:     "Single character after $",
			sentence: "$A",
			expected: "41",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateChecksum(tt.sentence)
			if result != tt.expected {
				t.Errorf("calculateChecksum(%q) = %q, want %q", tt.sentence, result, tt.expected)
			}
		})
	}
}

func TestFormatNMEA(t *testing.T) {
	got := formatNMEA("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,")
	want := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"
	if got != want {
		t.Errorf("formatNMEA() = %q, want %q", got, want)
	}
}

func TestNMEACoordinates(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		isLat   bool
		wantVal string
		wantHem string
	}{
		{"north latitude", 22.1696, true, "2210.1760", "N"},
		{"south latitude", -33.5, true, "3330.0000", "S"},
		{"east longitude", 91.4996, false, "09129.9760", "E"},
		{"west longitude", -122.25, false, "12215.0000", "W"},
		{"equator", 0, true, "0000.0000", "N"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var val, hem string
			if tt.isLat {
				val, hem = nmeaLatitude(tt.value)
			} else {
				val, hem = nmeaLongitude(tt.value)
			}
			if val != tt.wantVal || hem != tt.wantHem {
				t.Errorf("got %s,%s want %s,%s", val, hem, tt.wantVal, tt.wantHem)
			}
		})
	}
}

func TestGenerateSentences(t *testing.T) {
	sentences := GenerateSentences(createTestUpdate())

	prefixes := []string{"$GPGGA,", "$GPRMC,", "$GPVTG,", "$GPHDT,", "$GPGLL,", "$GPZDA,"}
	if len(sentences) != len(prefixes) {
		t.Fatalf("Expected %d sentences, got %d", len(prefixes), len(sentences))
	}

	for i, sentence := range sentences {
		if !strings.HasPrefix(sentence, prefixes[i]) {
			t.Errorf("Sentence %d = %q, want prefix %s", i, sentence, prefixes[i])
		}
		if !strings.HasSuffix(sentence, "\r\n") {
			t.Errorf("Sentence %d is not CRLF terminated: %q", i, sentence)
		}

		body, checksum, found := strings.Cut(strings.TrimSuffix(sentence, "\r\n"), "*")
		if !found {
			t.Errorf("Sentence %d has no checksum: %q", i, sentence)
			continue
		}
		if calculateChecksum(body) != checksum {
			t.Errorf("Sentence %d checksum %s, want %s", i, checksum, calculateChecksum(body))
		}
	}
}

func TestGenerateRMC(t *testing.T) {
	rmc := generateRMC(createTestUpdate())

	want := "$GPRMC,123456,A,2210.1760,N,09129.9760,E,10.0,90.0,050324,,,A"
	if !strings.HasPrefix(rmc, want+"*") {
		t.Errorf("generateRMC() = %q, want prefix %q", rmc, want)
	}
}

func TestGenerateVTGAndHDT(t *testing.T) {
	u := createTestUpdate()

	vtg := generateVTG(u)
	if !strings.HasPrefix(vtg, "$GPVTG,90.0,T,,M,10.0,N,18.5,K,A*") {
		t.Errorf("Unexpected VTG sentence: %q", vtg)
	}

	hdt := generateHDT(u)
	if !strings.HasPrefix(hdt, "$GPHDT,90.0,T*") {
		t.Errorf("Unexpected HDT sentence: %q", hdt)
	}
}

func TestGenerateGGA(t *testing.T) {
	gga := generateGGA(createTestUpdate())

	want := "$GPGGA,123456,2210.1760,N,09129.9760,E,1,08,1.0,0.0,M,0.0,M,,*"
	if !strings.HasPrefix(gga, want) {
		t.Errorf("generateGGA() = %q, want prefix %q", gga, want)
	}
}

func TestGenerateZDA(t *testing.T) {
	zda := generateZDA(createTestUpdate().Timestamp)

	want := "$GPZDA,123456.78,05,03,2024,00,00*"
	if !strings.HasPrefix(zda, want) {
		t.Errorf("generateZDA() = %q, want prefix %q", zda, want)
	}
}
