package vessel

import (
	"fmt"
	"math"
	"time"
)

// kmhPerKnot converts between the engine's km/h and NMEA knots
const kmhPerKnot = 1.852

// GenerateSentences renders one update as the NMEA 0183 sentences written per tick
func GenerateSentences(u Update) []string {
	return []string{
		generateGGA(u),
		generateRMC(u),
		generateVTG(u),
		generateHDT(u),
		generateGLL(u),
		generateZDA(u.Timestamp),
	}
}

// calculateChecksum calculates the NMEA checksum for a sentence
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ { // Skip the '$' character
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// formatNMEA formats a complete NMEA sentence with checksum
func formatNMEA(sentence string) string {
	checksum := calculateChecksum(sentence)
	return fmt.Sprintf("%s*%s\r\n", sentence, checksum)
}

// nmeaLatitude converts decimal degrees to DDMM.MMMM and hemisphere
func nmeaLatitude(lat float64) (string, string) {
	deg := int(math.Abs(lat))
	minutes := (math.Abs(lat) - float64(deg)) * 60
	hem := "N"
	if lat < 0 {
		hem = "S"
	}
	return fmt.Sprintf("%02d%07.4f", deg, minutes), hem
}

// nmeaLongitude converts decimal degrees to DDDMM.MMMM and hemisphere
func nmeaLongitude(lon float64) (string, string) {
	deg := int(math.Abs(lon))
	minutes := (math.Abs(lon) - float64(deg)) * 60
	hem := "E"
	if lon < 0 {
		hem = "W"
	}
	return fmt.Sprintf("%03d%07.4f", deg, minutes), hem
}

// nmeaTime formats HHMMSS.SS
func nmeaTime(t time.Time) string {
	utc := t.UTC()
	return fmt.Sprintf("%02d%02d%02d.%02d",
		utc.Hour(), utc.Minute(), utc.Second(), utc.Nanosecond()/10000000)
}

// generateGGA generates a GGA (Global Positioning System Fix Data) sentence
func generateGGA(u Update) string {
	lat, latHem := nmeaLatitude(u.Position.Lat)
	lon, lonHem := nmeaLongitude(u.Position.Lng)

	// Surface vessel: fixed 8 satellites, altitude 0 m
	sentence := fmt.Sprintf("$GPGGA,%s,%s,%s,%s,%s,1,08,1.0,0.0,M,0.0,M,,",
		u.Timestamp.UTC().Format("150405"),
		lat, latHem,
		lon, lonHem)

	return formatNMEA(sentence)
}

// generateRMC generates an RMC (Recommended Minimum) sentence
func generateRMC(u Update) string {
	lat, latHem := nmeaLatitude(u.Position.Lat)
	lon, lonHem := nmeaLongitude(u.Position.Lng)

	sentence := fmt.Sprintf("$GPRMC,%s,A,%s,%s,%s,%s,%.1f,%.1f,%s,,,A",
		u.Timestamp.UTC().Format("150405"),
		lat, latHem,
		lon, lonHem,
		u.SpeedKmH/kmhPerKnot, u.CourseDegrees,
		u.Timestamp.UTC().Format("020106"))

	return formatNMEA(sentence)
}

// generateVTG generates a VTG (Track Made Good and Ground Speed) sentence
func generateVTG(u Update) string {
	// Magnetic course left empty, no variation is simulated
	sentence := fmt.Sprintf("$GPVTG,%.1f,T,,M,%.1f,N,%.1f,K,A",
		u.CourseDegrees,
		u.SpeedKmH/kmhPerKnot,
		u.SpeedKmH)

	return formatNMEA(sentence)
}

// generateHDT generates an HDT (Heading, True) sentence
func generateHDT(u Update) string {
	sentence := fmt.Sprintf("$GPHDT,%.1f,T", u.CourseDegrees)
	return formatNMEA(sentence)
}

// generateGLL generates a GLL (Geographic Position - Latitude/Longitude) sentence
func generateGLL(u Update) string {
	lat, latHem := nmeaLatitude(u.Position.Lat)
	lon, lonHem := nmeaLongitude(u.Position.Lng)

	sentence := fmt.Sprintf("$GPGLL,%s,%s,%s,%s,%s,A,A",
		lat, latHem,
		lon, lonHem,
		nmeaTime(u.Timestamp))

	return formatNMEA(sentence)
}

// generateZDA generates a ZDA (UTC Date and Time) sentence
func generateZDA(timestamp time.Time) string {
	utc := timestamp.UTC()

	sentence := fmt.Sprintf("$GPZDA,%s,%02d,%02d,%04d,00,00",
		nmeaTime(utc), utc.Day(), int(utc.Month()), utc.Year())

	return formatNMEA(sentence)
}
