package network

// CRC16 is CRC16-CCITT in reflected form (poly 0x8408, init 0xFFFF) with the result
// complemented and byte swapped, as the requesters compute it.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	crc = ^crc
	return crc<<8 | crc>>8
}
