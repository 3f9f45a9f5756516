// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bme680 drives a Bosch BME680/BME688 over I²C in forced mode.
package bme680

import (
	"periph.io/x/conn/v3/physic"
)

const (
	HectoPascal = 100 * physic.Pascal

	tempPrecision = 1000000
)

// sense680 reads the device's data registers and compensates them.
//
// It must be called with d.mu lock held.
func (d *Dev) sense680(e *physic.Env) error {
	buf := [8]byte{}
	if err := d.readReg(AddrPressMSB, buf[:]); err != nil {
		return err
	}

	// Pressure and temperature are 20 bits, humidity 16.
	pRaw := uint32(buf[0])<<12 | uint32(buf[1])<<4 | uint32(buf[2])>>4
	tRaw := uint32(buf[3])<<12 | uint32(buf[4])<<4 | uint32(buf[5])>>4
	hRaw := uint16(buf[6])<<8 | uint16(buf[7])

	tempComp, tempFine := d.calibration.compensateTemp(tRaw)

	e.Temperature = physic.Temperature(tempComp*tempPrecision)*physic.Kelvin/tempPrecision + physic.ZeroCelsius

	if d.opts.Pressure != Off {
		pressureComp := d.calibration.compensatePressure(pRaw, tempFine)
		e.Pressure = physic.Pressure(pressureComp * float64(physic.Pascal))
	}

	if d.opts.Humidity != Off {
		humidityComp := d.calibration.compensateHumidity(hRaw, tempComp)
		e.Humidity = physic.RelativeHumidity(humidityComp * float64(physic.PercentRH))
	}

	return nil
}

func (d *Dev) isIdle680() (bool, error) {
	// status
	v := [1]byte{}
	if err := d.readReg(AddrEasStatus0, v[:]); err != nil {
		return false, err
	}
	// Bit 5 is set while a conversion is running.
	return v[0]&0b100000 == 0, nil
}

// mode is the operating mode.
type mode byte

const (
	sleep  mode = 0 // no operation, all registers accessible, lowest power, selected after startup
	forced mode = 1 // perform one measurement, store results and return to sleep mode
)
