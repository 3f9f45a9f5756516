package config

// SensorOptions select the physical sensor of the sensor agent.
type SensorOptions struct {
	Driver  string `long:"sensor" env:"PIAGENT_SENSOR" default-mask:"dht11" description:"Sensor driver: dht11, bme680 or bme680-scd4x" yaml:"sensor" validate:"oneof=dht11 bme680 bme680-scd4x"`
	GPIO    string `short:"g" long:"gpio" env:"PIAGENT_GPIO" default-mask:"GPIO4" description:"DHT11 data pin" yaml:"gpio" validate:"required_if=Driver dht11"`
	I2CBus  string `short:"D" long:"i2cdev" env:"PIAGENT_I2C_BUS" description:"The used I2C device (default: auto)" yaml:"i2cBus"`
	I2CAddr uint16 `long:"i2c-addr" env:"PIAGENT_I2C_ADDR" base:"16" default-mask:"76" description:"BME680 address, hexadecimal" yaml:"i2cAddr" validate:"oneof=118 119"`
}

// DefaultSensorOptions reads a DHT11 on GPIO4.
func DefaultSensorOptions() SensorOptions {
	return SensorOptions{Driver: "dht11", GPIO: "GPIO4", I2CAddr: 0x76}
}

// SimOptions seed the simulators. Zero picks a seed from the clock.
type SimOptions struct {
	Seed     int64   `long:"seed" env:"PIAGENT_SEED" description:"Random seed, 0 for time based" yaml:"seed"`
	SidecarP float64 `long:"sidecar-probability" env:"PIAGENT_SIDECAR_PROBABILITY" default-mask:"0.1" description:"Chance of running the query sidecars after a report" yaml:"sidecarProbability" validate:"gte=0,lte=1"`
}

func DefaultSimOptions() SimOptions {
	return SimOptions{SidecarP: 0.1}
}
