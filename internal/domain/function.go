package domain

import "fmt"

// FunctionCode is the Modbus operation selector.
type FunctionCode uint8

// Supported Modbus function codes.
const (
	FuncReadCoils              FunctionCode = 0x01
	FuncReadDiscreteInputs     FunctionCode = 0x02
	FuncReadHoldingRegisters   FunctionCode = 0x03
	FuncReadInputRegisters     FunctionCode = 0x04
	FuncWriteSingleCoil        FunctionCode = 0x05
	FuncWriteSingleRegister    FunctionCode = 0x06
	FuncWriteMultipleCoils     FunctionCode = 0x0F
	FuncWriteMultipleRegisters FunctionCode = 0x10
)

// ExceptionFlag is set on the response function code when the device reports
// a Modbus exception.
const ExceptionFlag uint8 = 0x80

// String returns the conventional name of the function code.
func (fc FunctionCode) String() string {
	switch fc {
	case FuncReadCoils:
		return "Read Coils"
	case FuncReadDiscreteInputs:
		return "Read Discrete Inputs"
	case FuncReadHoldingRegisters:
		return "Read Holding Registers"
	case FuncReadInputRegisters:
		return "Read Input Registers"
	case FuncWriteSingleCoil:
		return "Write Single Coil"
	case FuncWriteSingleRegister:
		return "Write Single Register"
	case FuncWriteMultipleCoils:
		return "Write Multiple Coils"
	case FuncWriteMultipleRegisters:
		return "Write Multiple Registers"
	default:
		return fmt.Sprintf("Function 0x%02X", uint8(fc))
	}
}

// Valid reports whether fc is one of the supported function codes.
func (fc FunctionCode) Valid() bool {
	switch fc {
	case FuncReadCoils, FuncReadDiscreteInputs,
		FuncReadHoldingRegisters, FuncReadInputRegisters,
		FuncWriteSingleCoil, FuncWriteSingleRegister,
		FuncWriteMultipleCoils, FuncWriteMultipleRegisters:
		return true
	}
	return false
}

// IsRead reports whether fc reads coils, inputs or registers.
func (fc FunctionCode) IsRead() bool {
	return fc >= FuncReadCoils && fc <= FuncReadInputRegisters
}

// IsWrite reports whether fc writes coils or registers.
func (fc FunctionCode) IsWrite() bool {
	return fc == FuncWriteSingleCoil || fc == FuncWriteSingleRegister ||
		fc == FuncWriteMultipleCoils || fc == FuncWriteMultipleRegisters
}

// IsSingleWrite reports whether fc writes exactly one item.
func (fc FunctionCode) IsSingleWrite() bool {
	return fc == FuncWriteSingleCoil || fc == FuncWriteSingleRegister
}

// IsMultiWrite reports whether fc writes a run of items.
func (fc FunctionCode) IsMultiWrite() bool {
	return fc == FuncWriteMultipleCoils || fc == FuncWriteMultipleRegisters
}

// IsBitOriented reports whether the function operates on coils or discrete
// inputs rather than 16-bit registers.
func (fc FunctionCode) IsBitOriented() bool {
	return fc == FuncReadCoils || fc == FuncReadDiscreteInputs ||
		fc == FuncWriteSingleCoil || fc == FuncWriteMultipleCoils
}

// ExceptionCode is the one-byte code carried by an exception response.
type ExceptionCode uint8

// Modbus exception codes, per the application protocol specification.
const (
	ExcIllegalFunction    ExceptionCode = 0x01
	ExcIllegalDataAddress ExceptionCode = 0x02
	ExcIllegalDataValue   ExceptionCode = 0x03
	ExcServerFailure      ExceptionCode = 0x04
	ExcAcknowledge        ExceptionCode = 0x05
	ExcServerBusy         ExceptionCode = 0x06
	ExcMemoryParityError  ExceptionCode = 0x08
	ExcGatewayPathNA      ExceptionCode = 0x0A
	ExcGatewayTargetNA    ExceptionCode = 0x0B
)

// String returns the conventional name of the exception code.
func (ec ExceptionCode) String() string {
	switch ec {
	case ExcIllegalFunction:
		return "Illegal Function"
	case ExcIllegalDataAddress:
		return "Illegal Data Address"
	case ExcIllegalDataValue:
		return "Illegal Data Value"
	case ExcServerFailure:
		return "Server Device Failure"
	case ExcAcknowledge:
		return "Acknowledge"
	case ExcServerBusy:
		return "Server Device Busy"
	case ExcMemoryParityError:
		return "Memory Parity Error"
	case ExcGatewayPathNA:
		return "Gateway Path Unavailable"
	case ExcGatewayTargetNA:
		return "Gateway Target Failed To Respond"
	default:
		return fmt.Sprintf("Exception 0x%02X", uint8(ec))
	}
}
