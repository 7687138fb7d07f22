package utils

import "hash/crc32"

// GameCrc32 is the reflected CRC-32 (IEEE polynomial) with zero initial value and
// no final xor, used by the game for shader names and path hashing.
func GameCrc32(str string) uint32 {
	return ^crc32.Update(0xFFFFFFFF, crc32.IEEETable, []byte(str))
}
