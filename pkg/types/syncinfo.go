package types

// MeteringPointType distinguishes production from consumption metering points.
type MeteringPointType string

const (
	MeteringPointTypeProduction  MeteringPointType = "production"
	MeteringPointTypeConsumption MeteringPointType = "consumption"
)

// Technology is the AIB fuel/technology code pair of a production metering point.
type Technology struct {
	FuelCode string `json:"fuel_code" yaml:"fuel_code"`
	TechCode string `json:"tech_code" yaml:"tech_code"`
}

// Address is the physical location of a metering point.
type Address struct {
	StreetName     string `json:"street_name"     yaml:"street_name"`
	BuildingNumber string `json:"building_number" yaml:"building_number"`
	CityName       string `json:"city_name"       yaml:"city_name"`
	Postcode       string `json:"postcode"        yaml:"postcode"`
	Country        string `json:"country"         yaml:"country"`
}

// MeteringPointSyncInfo describes one metering point that should be synchronized.
// A zero EndSyncDate means the contract is open-ended.
type MeteringPointSyncInfo struct {
	GSRN              string            `json:"gsrn"                     yaml:"gsrn"`
	Owner             string            `json:"owner"                    yaml:"owner"`
	MeteringPointType MeteringPointType `json:"metering_point_type"      yaml:"metering_point_type"`
	GridArea          string            `json:"grid_area"                yaml:"grid_area"`
	Technology        *Technology       `json:"technology,omitempty"     yaml:"technology,omitempty"`
	RecipientID       string            `json:"recipient_id"             yaml:"recipient_id"`
	StartSyncDate     UnixTimestamp     `json:"start_sync_date"          yaml:"start_sync_date"`
	EndSyncDate       UnixTimestamp     `json:"end_sync_date,omitempty"  yaml:"end_sync_date,omitempty"`
	Address           *Address          `json:"address,omitempty"        yaml:"address,omitempty"`
}

// HasEnd reports whether the sync has a configured end boundary.
func (s MeteringPointSyncInfo) HasEnd() bool {
	return s.EndSyncDate > 0
}
