package bme680

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

const (
	AddrVariant byte = 0xF0 // read-only, only defined on BME688
	AddrChipID  byte = 0xD0 // read-only, should contain 0x61

	// calibration ranges

	AddrCal1Start byte = 0xE1
	AddrCal1End   byte = 0xEE
	AddrCal2Start byte = 0x8A
	AddrCal2End   byte = 0xA0

	// control registers from this point on

	AddrReset byte = 0xE0

	AddrConfig   byte = 0x75
	AddrCtrlMeas byte = 0x74
	AddrCtrlHum  byte = 0x72

	// data registers from this point on unless marked otherwise

	AddrHumLSB     byte = 0x26
	AddrHumMSB     byte = 0x25
	AddrTempXLSB   byte = 0x24
	AddrTempLSB    byte = 0x23
	AddrTempMSB    byte = 0x22
	AddrPressXLSB  byte = 0x21
	AddrPressLSB   byte = 0x20
	AddrPressMSB   byte = 0x1F
	AddrEasStatus0 byte = 0x1D // status only
)

// chipID is the content of AddrChipID for both BME680 and BME688.
const chipID = 0x61

// Oversampling affects how much time is taken to measure each of temperature,
// pressure and humidity.
type Oversampling uint8

// Possible oversampling values.
//
// The higher the more time and power it takes to take a measurement. Even at
// 16x for all 3 sensors, it is less than 100ms albeit increased power
// consumption may increase the temperature reading.
const (
	Off  Oversampling = 0
	O1x  Oversampling = 1
	O2x  Oversampling = 2
	O4x  Oversampling = 3
	O8x  Oversampling = 4
	O16x Oversampling = 5
)

const oversamplingName = "Off1x2x4x8x16x"

var oversamplingIndex = [...]uint8{0, 3, 5, 7, 9, 11, 14}

func (o Oversampling) String() string {
	if o >= Oversampling(len(oversamplingIndex)-1) {
		return fmt.Sprintf("Oversampling(%d)", o)
	}
	return oversamplingName[oversamplingIndex[o]:oversamplingIndex[o+1]]
}

// Filter specifies the internal IIR filter to get steadier measurements.
type Filter uint8

// Possible filtering values.
//
// The higher the filter, the slower the value converges but the more stable
// the measurement is.
const (
	NoFilter Filter = 0
	F2       Filter = 1
	F4       Filter = 2
	F8       Filter = 3
	F16      Filter = 4
	F32      Filter = 5
	F64      Filter = 6
	F128     Filter = 7
)

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Temperature: O4x,
	Pressure:    O4x,
	Humidity:    O4x,
	Filter:      F4,
}

// Opts defines the options for the device.
//
// For humidity sensing the datasheet recommends one manual sample per
// second with pressure Off and temperature and humidity at O1x.
type Opts struct {
	// Temperature must be measured for pressure and humidity to be measured.
	Temperature Oversampling
	Pressure    Oversampling
	Humidity    Oversampling
	Filter      Filter
}

// ErrNotReady is returned by Sense when the device is still measuring after
// the conversion deadline.
var ErrNotReady = errors.New("measurement not ready")

// NewI2C returns an object that communicates over I²C to a BME680 or BME688
// environmental sensor.
//
// The address must be 0x76 or 0x77, depending on the SDO pin.
//
// It is recommended to call Halt() when done with the device so it goes back
// to sleep.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	switch addr {
	case 0x76, 0x77:
	default:
		return nil, errors.New("bme680: given address not supported by device")
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	if err := d.makeDev(opts); err != nil {
		return nil, err
	}
	return d, nil
}

// Dev is a handle to an initialized BME680 device.
//
// The actual device variant was auto detected.
type Dev struct {
	d           conn.Conn
	is688       bool
	opts        Opts
	name        string
	calibration calibration

	mu sync.Mutex
}

func (d *Dev) String() string {
	return fmt.Sprintf("%s{%s}", d.name, d.d)
}

// Sense requests a one time measurement as °C, Pa and % of relative humidity.
//
// The very first measurements may be of poor quality.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := d.writeCommands([]byte{
		// ctrl_meas
		AddrCtrlMeas, d.ctrlMeas(forced),
	})
	if err != nil {
		return d.wrap(err)
	}

	if err := d.waitIdle(); err != nil {
		return err
	}
	return d.sense680(e)
}

// Halt puts the device back into sleep mode.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeCommands([]byte{
		AddrConfig, byte(NoFilter) << 2,
		AddrCtrlMeas, d.ctrlMeas(sleep),
	})
}

//

func (d *Dev) makeDev(opts *Opts) error {
	d.opts = *opts
	d.name = "BME680"

	var variantID, chip [1]byte

	// 0xF0 holds the variant ID (0 for BME680, 1 for BME688)
	if err := d.readReg(AddrVariant, variantID[:]); err != nil {
		return err
	}
	if err := d.readReg(AddrChipID, chip[:]); err != nil {
		return err
	}

	if chip[0] != chipID {
		return fmt.Errorf("bme680: unexpected chip id %#x", chip[0])
	}

	if variantID[0] == 1 {
		d.name = "BME688"
		d.is688 = true
	}

	var cal1 [(AddrCal1End + 1) - AddrCal1Start]byte
	if err := d.readReg(AddrCal1Start, cal1[:]); err != nil {
		return err
	}
	var cal2 [(AddrCal2End + 1) - AddrCal2Start]byte
	if err := d.readReg(AddrCal2Start, cal2[:]); err != nil {
		return err
	}

	d.calibration = newCalibration(cal1[:], cal2[:])
	b := []byte{
		// ctrl_meas; put it to sleep otherwise the config update may be
		// ignored.
		AddrCtrlMeas, d.ctrlMeas(sleep),
		// ctrl_hum
		AddrCtrlHum, byte(d.opts.Humidity),
		// config
		AddrConfig, byte(d.opts.Filter) << 2,
		// ctrl_meas must be re-written last.
		AddrCtrlMeas, d.ctrlMeas(sleep),
	}

	return d.writeCommands(b)
}

func (d *Dev) ctrlMeas(m mode) byte {
	return byte(d.opts.Temperature)<<5 | byte(d.opts.Pressure)<<2 | byte(m)
}

// waitIdle polls the status register until the forced conversion is done.
//
// It must be called with d.mu lock held.
func (d *Dev) waitIdle() error {
	for i := 0; i < 20; i++ {
		idle, err := d.isIdle680()
		if err != nil {
			return err
		}
		if idle {
			return nil
		}
		doSleep(10 * time.Millisecond)
	}
	return d.wrap(ErrNotReady)
}

func (d *Dev) readReg(reg uint8, b []byte) error {
	if err := d.d.Tx([]byte{reg}, b); err != nil {
		return d.wrap(err)
	}
	return nil
}

// writeCommands writes register/value pairs to the device.
func (d *Dev) writeCommands(b []byte) error {
	if err := d.d.Tx(b, nil); err != nil {
		return d.wrap(err)
	}
	return nil
}

func (d *Dev) wrap(err error) error {
	return fmt.Errorf("%s: %w", strings.ToLower(d.name), err)
}

var doSleep = time.Sleep

var _ conn.Resource = &Dev{}
